package service

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/websocket"
	"github.com/yourusername/maxbattle-api/pkg/payment"
)

// Сектора колеса бонусов: сумма и вес выпадения (в процентах)
var (
	spinPrizes  = []float64{5, 2, 1, 0.5, 0.2, 0}
	spinWeights = []int{8, 12, 20, 25, 20, 15}
)

// SpinResult - итог вращения колеса
type SpinResult struct {
	Prize      float64   `json:"prize"`
	PrizeIndex int       `json:"prizeIndex"`
	NextSpinAt time.Time `json:"nextSpinAt"`
}

// WalletService управляет балансом: пополнения, выводы, колесо бонусов
type WalletService struct {
	userRepo repository.UserRepository
	txRepo   repository.TransactionRepository
	gateway  payment.Gateway
	db       *gorm.DB
	hub      *websocket.Hub

	// rng подменяется в тестах для детерминированного колеса
	rng *rand.Rand
}

// NewWalletService создает новый сервис кошелька
func NewWalletService(
	userRepo repository.UserRepository,
	txRepo repository.TransactionRepository,
	gateway payment.Gateway,
	db *gorm.DB,
	hub *websocket.Hub,
) *WalletService {
	return &WalletService{
		userRepo: userRepo,
		txRepo:   txRepo,
		gateway:  gateway,
		db:       db,
		hub:      hub,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateOrder создает платёжный ордер на пополнение и pending-транзакцию.
// Баланс меняется только после verify.
func (s *WalletService) CreateOrder(userID uint, amount float64) (*payment.Order, error) {
	if amount < entity.MinDeposit || amount > entity.MaxDeposit {
		return nil, fmt.Errorf("%w: deposit must be between ₹%d and ₹%d",
			apperrors.ErrValidation, entity.MinDeposit, entity.MaxDeposit)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("dep_%d_%d", user.ID, time.Now().Unix())
	order, err := s.gateway.CreateOrder(amount, receipt)
	if err != nil {
		return nil, err
	}

	depositTx := &entity.Transaction{
		UserID:      user.ID,
		Type:        entity.TransactionTypeDeposit,
		Amount:      amount,
		Status:      entity.TransactionStatusPending,
		OrderID:     order.ID,
		Description: fmt.Sprintf("Wallet deposit of ₹%.0f", amount),
	}
	if err := s.txRepo.Create(depositTx); err != nil {
		return nil, fmt.Errorf("failed to record pending deposit: %w", err)
	}

	log.Printf("[WalletService] Создан ордер %s на ₹%.0f для пользователя ID=%d",
		order.ID, amount, user.ID)
	return order, nil
}

// VerifyPayment проверяет подпись платежа и зачисляет депозит.
// Повторный verify того же ордера отклоняется.
func (s *WalletService) VerifyPayment(userID uint, orderID, paymentID, signature string) (*entity.Transaction, error) {
	depositTx, err := s.txRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if depositTx.UserID != userID {
		return nil, fmt.Errorf("%w: order belongs to another user", apperrors.ErrForbidden)
	}
	if !depositTx.IsPending() {
		return nil, fmt.Errorf("%w: payment already processed", apperrors.ErrConflict)
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		depositTx.Status = entity.TransactionStatusFailed
		if updErr := s.txRepo.Update(depositTx); updErr != nil {
			log.Printf("[WalletService] Ошибка пометки транзакции %d как failed: %v", depositTx.ID, updErr)
		}
		log.Printf("[WalletService] Неверная подпись платежа для ордера %s (user=%d)", orderID, userID)
		return nil, fmt.Errorf("%w: payment signature verification failed", apperrors.ErrValidation)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Перечитываем под блокировкой: два параллельных verify не должны
		// зачислить депозит дважды
		var locked entity.Transaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, depositTx.ID).Error; err != nil {
			return err
		}
		if !locked.IsPending() {
			return fmt.Errorf("%w: payment already processed", apperrors.ErrConflict)
		}

		updates := map[string]interface{}{
			"deposited":     gorm.Expr("deposited + ?", locked.Amount),
			"total_balance": gorm.Expr("total_balance + ?", locked.Amount),
		}
		if err := tx.Model(&entity.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to credit deposit: %w", err)
		}

		locked.Status = entity.TransactionStatusCompleted
		locked.PaymentID = paymentID
		if err := tx.Save(&locked).Error; err != nil {
			return err
		}
		*depositTx = locked

		notif := &entity.Notification{
			UserID:  userID,
			Title:   "Deposit successful",
			Message: fmt.Sprintf("₹%.0f added to your wallet.", locked.Amount),
		}
		return tx.Create(notif).Error
	})
	if err != nil {
		return nil, err
	}

	s.pushBalanceEvent(userID, "deposit", depositTx.Amount)
	log.Printf("[WalletService] Депозит ₹%.0f зачислен пользователю ID=%d (order=%s)",
		depositTx.Amount, userID, orderID)
	return depositTx, nil
}

// Withdraw создает заявку на вывод. Сумма сразу удерживается из winning-баланса;
// отклонение заявки возвращает её. Комиссия 3% округляется вверх до рупии.
func (s *WalletService) Withdraw(userID uint, amount float64, upiID string) (*entity.Transaction, error) {
	if amount < entity.MinWithdrawal || amount > entity.MaxWithdrawal {
		return nil, fmt.Errorf("%w: withdrawal must be between ₹%d and ₹%d",
			apperrors.ErrValidation, entity.MinWithdrawal, entity.MaxWithdrawal)
	}
	if upiID == "" {
		return nil, fmt.Errorf("%w: upi id is required", apperrors.ErrValidation)
	}

	var withdrawalTx *entity.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user entity.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, userID).Error; err != nil {
			return err
		}

		if !user.HasUPI() {
			return fmt.Errorf("%w: add a upi id to your profile first", apperrors.ErrValidation)
		}
		if user.Winning < amount {
			return fmt.Errorf("%w: only winning balance can be withdrawn (₹%.2f available)",
				apperrors.ErrInsufficientBalance, user.Winning)
		}

		user.Winning -= amount
		user.RecalculateTotal()
		if err := tx.Model(&entity.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"winning":       user.Winning,
			"total_balance": user.TotalBalance,
		}).Error; err != nil {
			return fmt.Errorf("failed to hold withdrawal amount: %w", err)
		}

		fee := entity.WithdrawalFee(amount)
		withdrawalTx = &entity.Transaction{
			UserID:      user.ID,
			Type:        entity.TransactionTypeWithdrawal,
			Amount:      amount,
			Fee:         fee,
			Status:      entity.TransactionStatusPending,
			UPIID:       upiID,
			Description: fmt.Sprintf("Withdrawal of ₹%.0f to %s (fee ₹%d)", amount, upiID, fee),
		}
		return tx.Create(withdrawalTx).Error
	})
	if err != nil {
		return nil, err
	}

	s.pushBalanceEvent(userID, "withdrawal_requested", -amount)
	log.Printf("[WalletService] Заявка на вывод ₹%.0f создана пользователем ID=%d", amount, userID)
	return withdrawalTx, nil
}

// ApproveWithdrawal подтверждает заявку на вывод (деньги уже удержаны)
func (s *WalletService) ApproveWithdrawal(transactionID uint) (*entity.Transaction, error) {
	return s.resolveWithdrawal(transactionID, true)
}

// RejectWithdrawal отклоняет заявку и возвращает сумму на winning-баланс
func (s *WalletService) RejectWithdrawal(transactionID uint) (*entity.Transaction, error) {
	return s.resolveWithdrawal(transactionID, false)
}

func (s *WalletService) resolveWithdrawal(transactionID uint, approve bool) (*entity.Transaction, error) {
	var withdrawalTx entity.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&withdrawalTx, transactionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("transaction %d: %w", transactionID, apperrors.ErrNotFound)
			}
			return err
		}

		if withdrawalTx.Type != entity.TransactionTypeWithdrawal {
			return fmt.Errorf("%w: transaction is not a withdrawal", apperrors.ErrValidation)
		}
		if !withdrawalTx.IsPending() {
			return fmt.Errorf("%w: withdrawal already resolved", apperrors.ErrConflict)
		}

		var notif *entity.Notification
		if approve {
			withdrawalTx.Status = entity.TransactionStatusCompleted
			notif = &entity.Notification{
				UserID: withdrawalTx.UserID,
				Title:  "Withdrawal approved",
				Message: fmt.Sprintf("₹%d sent to %s.",
					entity.WithdrawalNet(withdrawalTx.Amount), withdrawalTx.UPIID),
			}
		} else {
			withdrawalTx.Status = entity.TransactionStatusFailed
			updates := map[string]interface{}{
				"winning":       gorm.Expr("winning + ?", withdrawalTx.Amount),
				"total_balance": gorm.Expr("total_balance + ?", withdrawalTx.Amount),
			}
			if err := tx.Model(&entity.User{}).Where("id = ?", withdrawalTx.UserID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to refund withdrawal: %w", err)
			}
			notif = &entity.Notification{
				UserID: withdrawalTx.UserID,
				Title:  "Withdrawal rejected",
				Message: fmt.Sprintf("Your withdrawal of ₹%.0f was rejected. The amount is back in your winning balance.",
					withdrawalTx.Amount),
			}
		}

		if err := tx.Save(&withdrawalTx).Error; err != nil {
			return err
		}
		return tx.Create(notif).Error
	})
	if err != nil {
		return nil, err
	}

	if !approve {
		s.pushBalanceEvent(withdrawalTx.UserID, "withdrawal_rejected", withdrawalTx.Amount)
	}
	log.Printf("[WalletService] Вывод ID=%d: approve=%t", transactionID, approve)
	return &withdrawalTx, nil
}

// Spin вращает колесо бонусов. Доступно раз в 5 часов, выигрыш зачисляется
// в bonus-часть баланса.
func (s *WalletService) Spin(userID uint) (*SpinResult, error) {
	var result *SpinResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user entity.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, userID).Error; err != nil {
			return err
		}

		now := time.Now()
		if !user.CanSpin(now) {
			return fmt.Errorf("%w: next spin available at %s",
				apperrors.ErrValidation, user.NextSpinAt().Format(time.RFC3339))
		}

		idx := s.pickSpinPrize()
		prize := spinPrizes[idx]

		updates := map[string]interface{}{
			"last_spin_time": now,
		}
		if prize > 0 {
			updates["bonus"] = gorm.Expr("bonus + ?", prize)
			updates["total_balance"] = gorm.Expr("total_balance + ?", prize)
		}
		if err := tx.Model(&entity.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to store spin result: %w", err)
		}

		if prize > 0 {
			spinTx := &entity.Transaction{
				UserID:      user.ID,
				Type:        entity.TransactionTypeSpin,
				Amount:      prize,
				Status:      entity.TransactionStatusCompleted,
				Description: fmt.Sprintf("Spin wheel reward of ₹%.2f", prize),
			}
			if err := tx.Create(spinTx).Error; err != nil {
				return err
			}
		}

		result = &SpinResult{
			Prize:      prize,
			PrizeIndex: idx,
			NextSpinAt: now.Add(entity.SpinCooldown),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Prize > 0 {
		s.pushBalanceEvent(userID, "spin", result.Prize)
	}
	log.Printf("[WalletService] Пользователь ID=%d выиграл ₹%.2f на колесе", userID, result.Prize)
	return result, nil
}

// ListTransactions возвращает страницу транзакций пользователя
func (s *WalletService) ListTransactions(userID uint, filters repository.TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error) {
	return s.txRepo.ListByUser(userID, filters, limit, offset)
}

// ListAllTransactions возвращает страницу транзакций всех пользователей (админ)
func (s *WalletService) ListAllTransactions(filters repository.TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error) {
	return s.txRepo.ListAll(filters, limit, offset)
}

// pickSpinPrize выбирает сектор колеса с учётом весов
func (s *WalletService) pickSpinPrize() int {
	total := 0
	for _, w := range spinWeights {
		total += w
	}
	roll := s.rng.Intn(total)
	for i, w := range spinWeights {
		if roll < w {
			return i
		}
		roll -= w
	}
	return len(spinWeights) - 1
}

func (s *WalletService) pushBalanceEvent(userID uint, reason string, amount float64) {
	if s.hub == nil {
		return
	}
	s.hub.SendToUser(userID, websocket.Event{
		Type: websocket.EventBalance,
		Data: map[string]interface{}{"reason": reason, "amount": amount},
	})
}
