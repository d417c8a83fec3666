package service

import (
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/websocket"
)

// PlacementResult - результат одного участника, присланный админом.
// Дисквалифицированные участники присылаются вместе с остальными
// и исключаются из выплат на сервере.
type PlacementResult struct {
	UserID       uint `json:"userId"`
	Position     int  `json:"position"`
	Kills        int  `json:"kills"`
	Disqualified bool `json:"disqualified"`
}

// DistributionRequest описывает раздачу призов. Интерпретация полей
// зависит от scoring type турнира:
//   - win_based:  Placements с позициями, суммы берутся из таблицы призов
//   - kill_based: позиционный приз + kills * per_kill_amount
//   - team_based: WinningTeam делит сумму призов поровну (остаток отбрасывается)
type DistributionRequest struct {
	Placements  []PlacementResult `json:"placements"`
	WinningTeam []uint            `json:"winningTeam"`
}

// PrizeService проводит раздачу призов завершённых турниров
type PrizeService struct {
	tournamentRepo repository.TournamentRepository
	userRepo       repository.UserRepository
	db             *gorm.DB
	hub            *websocket.Hub
}

// NewPrizeService создает новый сервис раздачи призов
func NewPrizeService(
	tournamentRepo repository.TournamentRepository,
	userRepo repository.UserRepository,
	db *gorm.DB,
	hub *websocket.Hub,
) *PrizeService {
	return &PrizeService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		db:             db,
		hub:            hub,
	}
}

// payout - рассчитанная выплата одному участнику
type payout struct {
	UserID   uint
	Position int
	Kills    int
	Amount   float64
	IsWin    bool    // увеличивает wins_count
}

// Distribute проводит раздачу призов турнира. Все выплаты, записи победителей
// и перевод турнира в completed выполняются одной транзакцией: либо все
// участники получают призы, либо никто.
func (s *PrizeService) Distribute(tournamentID uint, req *DistributionRequest) ([]entity.Winner, error) {
	var winners []entity.Winner

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tournament entity.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Slots").Preload("Prizes").
			First(&tournament, tournamentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("tournament %d: %w", tournamentID, apperrors.ErrNotFound)
			}
			return err
		}

		if tournament.Status != entity.TournamentStatusOngoing &&
			tournament.Status != entity.TournamentStatusCompleted {
			return fmt.Errorf("%w: prizes can only be distributed for ongoing or completed tournaments",
				apperrors.ErrValidation)
		}

		var existing int64
		if err := tx.Model(&entity.Winner{}).Where("tournament_id = ?", tournamentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: prizes already distributed for this tournament", apperrors.ErrConflict)
		}

		payouts, err := calculatePayouts(&tournament, req)
		if err != nil {
			return err
		}
		if len(payouts) == 0 {
			return fmt.Errorf("%w: no payouts to distribute", apperrors.ErrValidation)
		}

		for _, p := range payouts {
			winner := entity.Winner{
				TournamentID: tournament.ID,
				UserID:       p.UserID,
				Position:     p.Position,
				Kills:        p.Kills,
				Amount:       p.Amount,
			}
			if err := tx.Create(&winner).Error; err != nil {
				return fmt.Errorf("failed to record winner %d: %w", p.UserID, err)
			}
			winners = append(winners, winner)

			if p.Amount > 0 {
				updates := map[string]interface{}{
					"winning":         gorm.Expr("winning + ?", p.Amount),
					"total_balance":   gorm.Expr("total_balance + ?", p.Amount),
					"total_prize_won": gorm.Expr("total_prize_won + ?", p.Amount),
				}
				if p.IsWin {
					updates["wins_count"] = gorm.Expr("wins_count + 1")
				}
				if err := tx.Model(&entity.User{}).Where("id = ?", p.UserID).
					Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to credit user %d: %w", p.UserID, err)
				}

				prizeTx := &entity.Transaction{
					UserID:      p.UserID,
					Type:        entity.TransactionTypeWinning,
					Amount:      p.Amount,
					Status:      entity.TransactionStatusCompleted,
					Description: fmt.Sprintf("Prize for %s", tournament.TournamentName),
				}
				if err := tx.Create(prizeTx).Error; err != nil {
					return err
				}

				notif := &entity.Notification{
					UserID:  p.UserID,
					Title:   "You won a prize!",
					Message: payoutMessage(&tournament, p),
				}
				if err := tx.Create(notif).Error; err != nil {
					return err
				}
			}
		}

		if tournament.Status == entity.TournamentStatusOngoing {
			if err := tx.Model(&entity.Tournament{}).Where("id = ?", tournament.ID).
				Update("status", entity.TournamentStatusCompleted).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		for _, w := range winners {
			if w.Amount > 0 {
				s.hub.SendToUser(w.UserID, websocket.Event{
					Type: websocket.EventBalance,
					Data: map[string]interface{}{"reason": "prize", "amount": w.Amount},
				})
			}
		}
	}

	log.Printf("[PrizeService] Турнир ID=%d: призы розданы %d победителям", tournamentID, len(winners))
	return winners, nil
}

// calculatePayouts превращает присланные результаты в список выплат
func calculatePayouts(t *entity.Tournament, req *DistributionRequest) ([]payout, error) {
	participants := make(map[uint]bool, t.CurrentPlayers)
	for i := range t.Slots {
		if t.Slots[i].UserID != nil {
			participants[*t.Slots[i].UserID] = true
		}
	}

	if t.ScoringType == entity.ScoringTeamBased {
		return teamPayouts(t, req, participants)
	}
	return placementPayouts(t, req, participants)
}

// placementPayouts считает выплаты win_based и kill_based турниров
func placementPayouts(t *entity.Tournament, req *DistributionRequest, participants map[uint]bool) ([]payout, error) {
	if len(req.Placements) == 0 {
		return nil, fmt.Errorf("%w: placements are required", apperrors.ErrValidation)
	}

	prizeByPosition := make(map[int]int, len(t.Prizes))
	for _, p := range t.Prizes {
		prizeByPosition[p.Position] = p.Amount
	}

	seenUsers := make(map[uint]bool, len(req.Placements))
	seenPositions := make(map[int]bool, len(req.Placements))
	var payouts []payout

	for _, pl := range req.Placements {
		if !participants[pl.UserID] {
			return nil, fmt.Errorf("%w: user %d did not join this tournament", apperrors.ErrValidation, pl.UserID)
		}
		if seenUsers[pl.UserID] {
			return nil, fmt.Errorf("%w: user %d listed twice", apperrors.ErrValidation, pl.UserID)
		}
		seenUsers[pl.UserID] = true

		// Дисквалифицированный участник не получает ничего,
		// его позиция и киллы не учитываются
		if pl.Disqualified {
			continue
		}

		if pl.Position > 0 {
			if seenPositions[pl.Position] {
				return nil, fmt.Errorf("%w: position %d assigned twice", apperrors.ErrValidation, pl.Position)
			}
			seenPositions[pl.Position] = true
		}
		if pl.Kills < 0 {
			return nil, fmt.Errorf("%w: kills cannot be negative", apperrors.ErrValidation)
		}

		amount := float64(prizeByPosition[pl.Position])
		if t.ScoringType == entity.ScoringKillBased {
			amount += float64(pl.Kills) * t.PerKillAmount
		}
		if amount <= 0 {
			continue
		}

		payouts = append(payouts, payout{
			UserID:   pl.UserID,
			Position: pl.Position,
			Kills:    pl.Kills,
			Amount:   amount,
			IsWin:    pl.Position == 1,
		})
	}

	return payouts, nil
}

// teamPayouts делит суммарный призовой фонд (сумму настроенных призов)
// поровну между членами победившей команды. Неделимый остаток отбрасывается.
func teamPayouts(t *entity.Tournament, req *DistributionRequest, participants map[uint]bool) ([]payout, error) {
	if len(req.WinningTeam) == 0 {
		return nil, fmt.Errorf("%w: winning team is required", apperrors.ErrValidation)
	}
	pool := t.TotalPrizeAmount()
	if pool <= 0 {
		return nil, fmt.Errorf("%w: tournament has no prize pool", apperrors.ErrValidation)
	}

	disqualified := make(map[uint]bool)
	for _, pl := range req.Placements {
		if pl.Disqualified {
			disqualified[pl.UserID] = true
		}
	}

	seen := make(map[uint]bool, len(req.WinningTeam))
	var members []uint
	for _, userID := range req.WinningTeam {
		if !participants[userID] {
			return nil, fmt.Errorf("%w: user %d did not join this tournament", apperrors.ErrValidation, userID)
		}
		if seen[userID] {
			return nil, fmt.Errorf("%w: user %d listed twice", apperrors.ErrValidation, userID)
		}
		seen[userID] = true
		if disqualified[userID] {
			continue
		}
		members = append(members, userID)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: entire winning team is disqualified", apperrors.ErrValidation)
	}

	perMember := float64(pool / len(members))

	payouts := make([]payout, 0, len(members))
	for _, userID := range members {
		payouts = append(payouts, payout{
			UserID: userID,
			Amount: perMember,
			IsWin:  true,
		})
	}
	return payouts, nil
}

func payoutMessage(t *entity.Tournament, p payout) string {
	switch {
	case t.ScoringType == entity.ScoringTeamBased:
		return fmt.Sprintf("Your team won %s! ₹%.0f added to your winning balance.", t.TournamentName, p.Amount)
	case t.ScoringType == entity.ScoringKillBased && p.Kills > 0:
		return fmt.Sprintf("%s: position #%d with %d kills. ₹%.0f added to your winning balance.",
			t.TournamentName, p.Position, p.Kills, p.Amount)
	default:
		return fmt.Sprintf("%s: position #%d. ₹%.0f added to your winning balance.",
			t.TournamentName, p.Position, p.Amount)
	}
}
