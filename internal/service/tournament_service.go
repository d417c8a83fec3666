package service

import (
	"fmt"
	"log"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/websocket"
)

// TournamentInput содержит поля создания/редактирования турнира
type TournamentInput struct {
	TournamentName       string
	GameName             string
	ModeType             string
	MatchType            string
	ScoringType          string
	PerKillAmount        float64
	EntryFee             int
	PrizePool            int
	MinPlayers           int
	MaxPlayers           int
	MatchTime            time.Time
	RegistrationDeadline time.Time
	DurationMin          int
	Rules                []string
	Prizes               map[int]int // позиция -> сумма
}

// TournamentService предоставляет методы для работы с турнирами.
// Денежные операции (entry fee, возвраты) выполняются внутри транзакций
// через *gorm.DB напрямую, под одной блокировкой со слотами.
type TournamentService struct {
	tournamentRepo   repository.TournamentRepository
	notificationRepo repository.NotificationRepository
	db               *gorm.DB
	hub              *websocket.Hub
}

// NewTournamentService создает новый сервис турниров
func NewTournamentService(
	tournamentRepo repository.TournamentRepository,
	notificationRepo repository.NotificationRepository,
	db *gorm.DB,
	hub *websocket.Hub,
) *TournamentService {
	return &TournamentService{
		tournamentRepo:   tournamentRepo,
		notificationRepo: notificationRepo,
		db:               db,
		hub:              hub,
	}
}

// Create создает турнир вместе с полным ростером пустых слотов и призами
func (s *TournamentService) Create(input *TournamentInput) (*entity.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	tournament := &entity.Tournament{
		TournamentName:       input.TournamentName,
		Slug:                 slug.Make(input.TournamentName),
		GameName:             input.GameName,
		ModeType:             input.ModeType,
		MatchType:            input.MatchType,
		ScoringType:          input.ScoringType,
		PerKillAmount:        input.PerKillAmount,
		EntryFee:             input.EntryFee,
		PrizePool:            input.PrizePool,
		MinPlayers:           input.MinPlayers,
		MaxPlayers:           input.MaxPlayers,
		MatchTime:            input.MatchTime,
		RegistrationDeadline: input.RegistrationDeadline,
		DurationMin:          input.DurationMin,
		Status:               entity.TournamentStatusUpcoming,
		Rules:                entity.StringArray(input.Rules),
	}

	for position, amount := range input.Prizes {
		tournament.Prizes = append(tournament.Prizes, entity.Prize{
			Position: position,
			Amount:   amount,
		})
	}

	if err := s.tournamentRepo.Create(tournament); err != nil {
		return nil, err
	}

	log.Printf("[TournamentService] Создан турнир '%s' (ID=%d, слотов=%d)",
		tournament.TournamentName, tournament.ID, tournament.MaxPlayers)
	return tournament, nil
}

// Update редактирует турнир. Уменьшить max_players ниже числа занятых слотов нельзя.
func (s *TournamentService) Update(tournamentID uint, input *TournamentInput) (*entity.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetWithDetails(tournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.IsCompleted() {
		return nil, fmt.Errorf("%w: completed tournament cannot be edited", apperrors.ErrValidation)
	}
	if input.MaxPlayers < tournament.CurrentPlayers {
		return nil, fmt.Errorf("%w: max players cannot be below current players (%d)",
			apperrors.ErrValidation, tournament.CurrentPlayers)
	}

	oldMax := tournament.MaxPlayers

	tournament.TournamentName = input.TournamentName
	tournament.Slug = slug.Make(input.TournamentName)
	tournament.GameName = input.GameName
	tournament.ModeType = input.ModeType
	tournament.MatchType = input.MatchType
	tournament.ScoringType = input.ScoringType
	tournament.PerKillAmount = input.PerKillAmount
	tournament.EntryFee = input.EntryFee
	tournament.PrizePool = input.PrizePool
	tournament.MinPlayers = input.MinPlayers
	tournament.MaxPlayers = input.MaxPlayers
	tournament.MatchTime = input.MatchTime
	tournament.RegistrationDeadline = input.RegistrationDeadline
	tournament.DurationMin = input.DurationMin
	tournament.Rules = entity.StringArray(input.Rules)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(tournament).Select(
			"tournament_name", "slug", "game_name", "mode_type", "match_type",
			"scoring_type", "per_kill_amount", "entry_fee", "prize_pool",
			"min_players", "max_players", "match_time", "registration_deadline",
			"duration_min", "rules",
		).Updates(tournament).Error; err != nil {
			return err
		}

		// Подгоняем ростер под новый max_players
		if input.MaxPlayers > oldMax {
			newSlots := make([]entity.Slot, 0, input.MaxPlayers-oldMax)
			for n := oldMax + 1; n <= input.MaxPlayers; n++ {
				newSlots = append(newSlots, entity.Slot{TournamentID: tournament.ID, SlotNumber: n})
			}
			if err := tx.Create(&newSlots).Error; err != nil {
				return fmt.Errorf("failed to extend roster: %w", err)
			}
		} else if input.MaxPlayers < oldMax {
			if err := tx.Where("tournament_id = ? AND slot_number > ? AND user_id IS NULL",
				tournament.ID, input.MaxPlayers).Delete(&entity.Slot{}).Error; err != nil {
				return fmt.Errorf("failed to shrink roster: %w", err)
			}
		}

		// Призы пересоздаются целиком: обновление по позициям хрупко
		if input.Prizes != nil {
			if err := tx.Where("tournament_id = ?", tournament.ID).Delete(&entity.Prize{}).Error; err != nil {
				return err
			}
			prizes := make([]entity.Prize, 0, len(input.Prizes))
			for position, amount := range input.Prizes {
				prizes = append(prizes, entity.Prize{
					TournamentID: tournament.ID,
					Position:     position,
					Amount:       amount,
				})
			}
			if len(prizes) > 0 {
				if err := tx.Create(&prizes).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.tournamentRepo.GetWithDetails(tournamentID)
}

// Delete удаляет турнир. Турнир с занятыми слотами сначала нужно отменить,
// чтобы игроки получили возврат entry fee.
func (s *TournamentService) Delete(tournamentID uint) error {
	tournament, err := s.tournamentRepo.GetByID(tournamentID)
	if err != nil {
		return err
	}

	if tournament.CurrentPlayers > 0 &&
		tournament.Status != entity.TournamentStatusCancelled &&
		tournament.Status != entity.TournamentStatusCompleted {
		return fmt.Errorf("%w: cancel the tournament before deleting it", apperrors.ErrValidation)
	}

	return s.tournamentRepo.Delete(tournamentID)
}

// GetByID возвращает турнир со слотами, призами и победителями
func (s *TournamentService) GetByID(tournamentID uint) (*entity.Tournament, error) {
	return s.tournamentRepo.GetWithDetails(tournamentID)
}

// List возвращает страницу каталога турниров
func (s *TournamentService) List(filters repository.TournamentFilters, limit, offset int) ([]entity.Tournament, int64, error) {
	return s.tournamentRepo.List(filters, limit, offset)
}

// GetPlayers возвращает занятые слоты турнира
func (s *TournamentService) GetPlayers(tournamentID uint) ([]entity.Slot, error) {
	if _, err := s.tournamentRepo.GetByID(tournamentID); err != nil {
		return nil, err
	}
	return s.tournamentRepo.GetPlayers(tournamentID)
}

// Stats возвращает счётчики турниров для главной страницы
func (s *TournamentService) Stats() (*repository.TournamentStats, error) {
	return s.tournamentRepo.Stats()
}

// GetByParticipant возвращает турниры, в которых пользователь занимает слот
func (s *TournamentService) GetByParticipant(userID uint) ([]entity.Tournament, error) {
	return s.tournamentRepo.GetByParticipant(userID)
}

// Join регистрирует пользователя в турнире: бронирует слот, списывает entry fee
// и фиксирует транзакцию. Все проверки и записи выполняются в одной транзакции
// с блокировкой строки турнира, чтобы два игрока не заняли последний слот.
// slotNumber обязателен для командных турниров, для остальных игнорируется.
func (s *TournamentService) Join(userID, tournamentID uint, slotNumber *int) (*entity.Slot, error) {
	var joined *entity.Slot

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tournament entity.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Slots", func(db *gorm.DB) *gorm.DB {
				return db.Order("slot_number ASC")
			}).
			First(&tournament, tournamentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("tournament %d: %w", tournamentID, apperrors.ErrNotFound)
			}
			return err
		}

		if !tournament.IsUpcoming() {
			return fmt.Errorf("%w: registration is closed", apperrors.ErrValidation)
		}
		if time.Now().After(tournament.RegistrationDeadline) {
			return fmt.Errorf("%w: registration deadline has passed", apperrors.ErrValidation)
		}
		if tournament.IsFull() {
			return fmt.Errorf("%w: tournament is full", apperrors.ErrConflict)
		}
		if tournament.UserSlot(userID) != nil {
			return fmt.Errorf("%w: already joined this tournament", apperrors.ErrConflict)
		}

		var slot *entity.Slot
		if tournament.RequiresSlotChoice() {
			if slotNumber == nil {
				return fmt.Errorf("%w: slot number is required for this tournament", apperrors.ErrValidation)
			}
			slot = tournament.FreeSlot(*slotNumber)
			if slot == nil {
				return fmt.Errorf("%w: slot is taken or does not exist", apperrors.ErrConflict)
			}
		} else {
			slot = tournament.NextFreeSlot()
			if slot == nil {
				return fmt.Errorf("%w: tournament is full", apperrors.ErrConflict)
			}
		}

		var user entity.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, userID).Error; err != nil {
			return err
		}

		if tournament.EntryFee > 0 {
			if !user.DebitForEntry(float64(tournament.EntryFee)) {
				return fmt.Errorf("%w: entry fee is ₹%d", apperrors.ErrInsufficientBalance, tournament.EntryFee)
			}
		}
		user.TournamentsPlayed++

		if err := tx.Model(&entity.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"winning":            user.Winning,
			"bonus":              user.Bonus,
			"deposited":          user.Deposited,
			"total_balance":      user.TotalBalance,
			"tournaments_played": user.TournamentsPlayed,
		}).Error; err != nil {
			return fmt.Errorf("failed to debit entry fee: %w", err)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"user_id":   user.ID,
			"username":  user.Username,
			"joined_at": now,
		}
		res := tx.Model(&entity.Slot{}).
			Where("id = ? AND user_id IS NULL", slot.ID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: slot is taken", apperrors.ErrConflict)
		}

		if err := tx.Model(&entity.Tournament{}).Where("id = ?", tournament.ID).
			Update("current_players", gorm.Expr("current_players + 1")).Error; err != nil {
			return err
		}

		if tournament.EntryFee > 0 {
			feeTx := &entity.Transaction{
				UserID:      user.ID,
				Type:        entity.TransactionTypeEntryFee,
				Amount:      float64(tournament.EntryFee),
				Status:      entity.TransactionStatusCompleted,
				Description: fmt.Sprintf("Entry fee for %s", tournament.TournamentName),
			}
			if err := tx.Create(feeTx).Error; err != nil {
				return err
			}
		}

		slot.UserID = &user.ID
		slot.Username = user.Username
		slot.JoinedAt = &now
		joined = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[TournamentService] Пользователь ID=%d занял слот #%d в турнире ID=%d",
		userID, joined.SlotNumber, tournamentID)
	return joined, nil
}

// UpdateStatus переводит турнир в новый статус. Переходы только вперёд;
// отмена возвращает всем участникам entry fee.
func (s *TournamentService) UpdateStatus(tournamentID uint, newStatus string) (*entity.Tournament, error) {
	tournament, err := s.tournamentRepo.GetWithDetails(tournamentID)
	if err != nil {
		return nil, err
	}

	if !tournament.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: cannot change status from '%s' to '%s'",
			apperrors.ErrValidation, tournament.Status, newStatus)
	}

	if newStatus == entity.TournamentStatusCancelled {
		if err := s.cancelWithRefunds(tournament); err != nil {
			return nil, err
		}
	} else {
		if err := s.tournamentRepo.UpdateStatus(tournamentID, newStatus); err != nil {
			return nil, err
		}
		s.notifyParticipants(tournament, statusChangeTitle(newStatus),
			statusChangeMessage(tournament, newStatus))
	}

	tournament.Status = newStatus
	log.Printf("[TournamentService] Турнир ID=%d переведён в статус '%s'", tournamentID, newStatus)
	return tournament, nil
}

// cancelWithRefunds отменяет турнир и возвращает entry fee всем участникам.
// Возврат зачисляется в deposited-часть баланса.
func (s *TournamentService) cancelWithRefunds(tournament *entity.Tournament) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Tournament{}).Where("id = ?", tournament.ID).
			Update("status", entity.TournamentStatusCancelled).Error; err != nil {
			return err
		}

		if tournament.EntryFee <= 0 {
			s.notifyParticipantsTx(tx, tournament, "Tournament cancelled",
				fmt.Sprintf("%s has been cancelled.", tournament.TournamentName))
			return nil
		}

		fee := float64(tournament.EntryFee)
		for i := range tournament.Slots {
			slot := &tournament.Slots[i]
			if slot.UserID == nil {
				continue
			}

			updates := map[string]interface{}{
				"deposited":     gorm.Expr("deposited + ?", fee),
				"total_balance": gorm.Expr("total_balance + ?", fee),
			}
			if err := tx.Model(&entity.User{}).Where("id = ?", *slot.UserID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to refund user %d: %w", *slot.UserID, err)
			}

			refundTx := &entity.Transaction{
				UserID:      *slot.UserID,
				Type:        entity.TransactionTypeRefund,
				Amount:      fee,
				Status:      entity.TransactionStatusCompleted,
				Description: fmt.Sprintf("Refund for cancelled tournament %s", tournament.TournamentName),
			}
			if err := tx.Create(refundTx).Error; err != nil {
				return err
			}
		}

		s.notifyParticipantsTx(tx, tournament, "Tournament cancelled",
			fmt.Sprintf("%s has been cancelled. Your entry fee of ₹%d was refunded.",
				tournament.TournamentName, tournament.EntryFee))
		return nil
	})
}

// NotifyRoom сохраняет данные комнаты и рассылает их участникам
func (s *TournamentService) NotifyRoom(tournamentID uint, roomID, roomPassword string) error {
	if roomID == "" || roomPassword == "" {
		return fmt.Errorf("%w: room id and password are required", apperrors.ErrValidation)
	}

	tournament, err := s.tournamentRepo.GetWithDetails(tournamentID)
	if err != nil {
		return err
	}
	if tournament.IsCompleted() || tournament.Status == entity.TournamentStatusCancelled {
		return fmt.Errorf("%w: tournament is over", apperrors.ErrValidation)
	}

	if err := s.tournamentRepo.SetRoom(tournamentID, roomID, roomPassword); err != nil {
		return err
	}

	s.notifyParticipants(tournament, "Room details available",
		fmt.Sprintf("%s: Room ID %s, Password %s. Good luck!",
			tournament.TournamentName, roomID, roomPassword))

	log.Printf("[TournamentService] Данные комнаты турнира ID=%d разосланы %d участникам",
		tournamentID, tournament.CurrentPlayers)
	return nil
}

// notifyParticipants создает уведомления всем участникам и шлёт их в websocket
func (s *TournamentService) notifyParticipants(tournament *entity.Tournament, title, message string) {
	notifications := make([]entity.Notification, 0, tournament.CurrentPlayers)
	for i := range tournament.Slots {
		if tournament.Slots[i].UserID == nil {
			continue
		}
		notifications = append(notifications, entity.Notification{
			UserID:  *tournament.Slots[i].UserID,
			Title:   title,
			Message: message,
		})
	}
	if len(notifications) == 0 {
		return
	}

	if err := s.notificationRepo.CreateBatch(notifications); err != nil {
		log.Printf("[TournamentService] Ошибка создания уведомлений для турнира ID=%d: %v",
			tournament.ID, err)
		return
	}
	s.pushNotifications(notifications)
}

// notifyParticipantsTx - то же, но внутри уже открытой транзакции
func (s *TournamentService) notifyParticipantsTx(tx *gorm.DB, tournament *entity.Tournament, title, message string) {
	notifications := make([]entity.Notification, 0, tournament.CurrentPlayers)
	for i := range tournament.Slots {
		if tournament.Slots[i].UserID == nil {
			continue
		}
		notifications = append(notifications, entity.Notification{
			UserID:  *tournament.Slots[i].UserID,
			Title:   title,
			Message: message,
		})
	}
	if len(notifications) == 0 {
		return
	}
	if err := tx.Create(&notifications).Error; err != nil {
		log.Printf("[TournamentService] Ошибка создания уведомлений для турнира ID=%d: %v",
			tournament.ID, err)
		return
	}
	s.pushNotifications(notifications)
}

func (s *TournamentService) pushNotifications(notifications []entity.Notification) {
	if s.hub == nil {
		return
	}
	for i := range notifications {
		s.hub.SendToUser(notifications[i].UserID, websocket.Event{
			Type: websocket.EventNotification,
			Data: notifications[i],
		})
	}
}

func validateTournamentInput(input *TournamentInput) error {
	if input.TournamentName == "" || input.GameName == "" {
		return fmt.Errorf("%w: tournament name and game name are required", apperrors.ErrValidation)
	}
	switch input.ScoringType {
	case entity.ScoringWinBased, entity.ScoringKillBased, entity.ScoringTeamBased:
	default:
		return fmt.Errorf("%w: unknown scoring type '%s'", apperrors.ErrValidation, input.ScoringType)
	}
	if input.ScoringType == entity.ScoringKillBased && input.PerKillAmount <= 0 {
		return fmt.Errorf("%w: per kill amount must be positive", apperrors.ErrValidation)
	}
	if input.EntryFee < 0 {
		return fmt.Errorf("%w: entry fee cannot be negative", apperrors.ErrValidation)
	}
	if input.MaxPlayers < 2 {
		return fmt.Errorf("%w: tournament needs at least 2 slots", apperrors.ErrValidation)
	}
	if input.MinPlayers < 2 || input.MinPlayers > input.MaxPlayers {
		return fmt.Errorf("%w: min players must be between 2 and max players", apperrors.ErrValidation)
	}
	if input.MatchTime.IsZero() || input.RegistrationDeadline.IsZero() {
		return fmt.Errorf("%w: match time and registration deadline are required", apperrors.ErrValidation)
	}
	if input.RegistrationDeadline.After(input.MatchTime) {
		return fmt.Errorf("%w: registration deadline must not be after match time", apperrors.ErrValidation)
	}
	for position, amount := range input.Prizes {
		if position < 1 || amount < 0 {
			return fmt.Errorf("%w: invalid prize position or amount", apperrors.ErrValidation)
		}
	}
	return nil
}

func statusChangeTitle(status string) string {
	switch status {
	case entity.TournamentStatusOngoing:
		return "Match started"
	case entity.TournamentStatusCompleted:
		return "Tournament completed"
	default:
		return "Tournament update"
	}
}

func statusChangeMessage(t *entity.Tournament, status string) string {
	switch status {
	case entity.TournamentStatusOngoing:
		return fmt.Sprintf("%s is live now. Join the room!", t.TournamentName)
	case entity.TournamentStatusCompleted:
		return fmt.Sprintf("%s has finished. Results will be published soon.", t.TournamentName)
	default:
		return fmt.Sprintf("%s status changed to %s.", t.TournamentName, status)
	}
}
