package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

// TournamentRepo реализует repository.TournamentRepository
type TournamentRepo struct {
	db *gorm.DB
}

// NewTournamentRepo создает новый репозиторий турниров
func NewTournamentRepo(db *gorm.DB) *TournamentRepo {
	return &TournamentRepo{db: db}
}

// Create создает турнир вместе с призами и пустыми слотами
func (r *TournamentRepo) Create(tournament *entity.Tournament) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tournament).Error; err != nil {
			return err
		}

		// Слоты создаются заранее на весь ростер: занятие слота - это
		// UPDATE существующей пустой строки, а не INSERT
		slots := make([]entity.Slot, 0, tournament.MaxPlayers)
		for i := 1; i <= tournament.MaxPlayers; i++ {
			slots = append(slots, entity.Slot{
				TournamentID: tournament.ID,
				SlotNumber:   i,
			})
		}
		if len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID возвращает турнир по ID без ассоциаций
func (r *TournamentRepo) GetByID(id uint) (*entity.Tournament, error) {
	var tournament entity.Tournament
	err := r.db.First(&tournament, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &tournament, nil
}

// GetWithDetails возвращает турнир со слотами, призами и победителями
func (r *TournamentRepo) GetWithDetails(id uint) (*entity.Tournament, error) {
	var tournament entity.Tournament
	err := r.db.
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("slots.slot_number ASC")
		}).
		Preload("Prizes", func(db *gorm.DB) *gorm.DB {
			return db.Order("prizes.position ASC")
		}).
		Preload("Winners").
		First(&tournament, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &tournament, nil
}

// Update обновляет турнир
func (r *TournamentRepo) Update(tournament *entity.Tournament) error {
	return r.db.Save(tournament).Error
}

// UpdateStatus точечно обновляет статус турнира
func (r *TournamentRepo) UpdateStatus(tournamentID uint, status string) error {
	result := r.db.Model(&entity.Tournament{}).
		Where("id = ?", tournamentID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetRoom сохраняет room id и пароль матча
func (r *TournamentRepo) SetRoom(tournamentID uint, roomID, roomPassword string) error {
	return r.db.Model(&entity.Tournament{}).
		Where("id = ?", tournamentID).
		Updates(map[string]interface{}{
			"room_id":       roomID,
			"room_password": roomPassword,
			"updated_at":    time.Now(),
		}).Error
}

// Delete удаляет турнир вместе со слотами, призами и победителями
func (r *TournamentRepo) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", id).Delete(&entity.Slot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&entity.Prize{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&entity.Winner{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Tournament{}, id).Error
	})
}

// List возвращает турниры по фильтрам с пагинацией и общим количеством
func (r *TournamentRepo) List(filters repository.TournamentFilters, limit, offset int) ([]entity.Tournament, int64, error) {
	var tournaments []entity.Tournament
	var total int64

	query := r.db.Model(&entity.Tournament{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Game != "" {
		query = query.Where("game_name ILIKE ?", filters.Game)
	}
	switch filters.Type {
	case "":
		// Без фильтра по типу
	case "free":
		query = query.Where("entry_fee = 0")
	case "paid":
		query = query.Where("entry_fee > 0")
	default:
		query = query.Where("match_type = ?", filters.Type)
	}
	if filters.EntryFee != nil {
		query = query.Where("entry_fee = ?", *filters.EntryFee)
	}
	if filters.MinEntryFee != nil {
		query = query.Where("entry_fee >= ?", *filters.MinEntryFee)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Prizes").
		Order("match_time ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&tournaments).Error
	if err != nil {
		return nil, 0, err
	}

	return tournaments, total, nil
}

// GetPlayers возвращает занятые слоты турнира в порядке номеров
func (r *TournamentRepo) GetPlayers(tournamentID uint) ([]entity.Slot, error) {
	var slots []entity.Slot
	err := r.db.
		Where("tournament_id = ? AND user_id IS NOT NULL", tournamentID).
		Order("slot_number ASC").
		Find(&slots).Error
	return slots, err
}

// GetByParticipant возвращает турниры, где пользователь занимает слот
func (r *TournamentRepo) GetByParticipant(userID uint) ([]entity.Tournament, error) {
	var tournaments []entity.Tournament
	err := r.db.
		Joins("JOIN slots ON slots.tournament_id = tournaments.id").
		Where("slots.user_id = ?", userID).
		Preload("Prizes").
		Preload("Winners").
		Order("tournaments.match_time DESC").
		Find(&tournaments).Error
	return tournaments, err
}

// Stats возвращает счётчики открытых турниров по категориям главной страницы
func (r *TournamentRepo) Stats() (*repository.TournamentStats, error) {
	stats := &repository.TournamentStats{}
	base := func() *gorm.DB {
		return r.db.Model(&entity.Tournament{}).Where("status = ?", entity.TournamentStatusUpcoming)
	}

	counts := []struct {
		dest  *int64
		apply func(*gorm.DB) *gorm.DB
	}{
		{&stats.Free, func(q *gorm.DB) *gorm.DB { return q.Where("entry_fee = 0") }},
		{&stats.OneRs, func(q *gorm.DB) *gorm.DB { return q.Where("entry_fee = 1") }},
		{&stats.PerKill, func(q *gorm.DB) *gorm.DB { return q.Where("scoring_type = ?", entity.ScoringKillBased) }},
		{&stats.CsSolo, func(q *gorm.DB) *gorm.DB { return q.Where("mode_type = ?", entity.ModeSolo) }},
		{&stats.CsDuo, func(q *gorm.DB) *gorm.DB { return q.Where("mode_type = ?", entity.ModeDuo) }},
		{&stats.CsSquad, func(q *gorm.DB) *gorm.DB { return q.Where("mode_type = ?", entity.ModeSquad) }},
	}

	for _, c := range counts {
		if err := c.apply(base()).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	return stats, nil
}

// DueForStart возвращает upcoming-турниры, чьё время матча уже наступило
func (r *TournamentRepo) DueForStart(now time.Time) ([]entity.Tournament, error) {
	var tournaments []entity.Tournament
	err := r.db.
		Where("status = ? AND match_time <= ?", entity.TournamentStatusUpcoming, now).
		Find(&tournaments).Error
	return tournaments, err
}

// PastDeadlineUnderfilled возвращает upcoming-турниры с истёкшим дедлайном
// регистрации, не набравшие минимум игроков
func (r *TournamentRepo) PastDeadlineUnderfilled(now time.Time) ([]entity.Tournament, error) {
	var tournaments []entity.Tournament
	err := r.db.
		Where("status = ? AND registration_deadline <= ? AND current_players < min_players",
			entity.TournamentStatusUpcoming, now).
		Find(&tournaments).Error
	return tournaments, err
}
