package entity

import (
	"math"
	"time"
)

// Типы транзакций
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeWinning    = "winning"
	TransactionTypeBonus      = "bonus"
	TransactionTypeEntryFee   = "entry_fee"
	TransactionTypeRefund     = "refund"
	TransactionTypeSpin       = "spin"
)

// Статусы транзакций
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Лимиты сумм и комиссия вывода
const (
	MinDeposit    = 1
	MaxDeposit    = 10000
	MinWithdrawal = 100
	MaxWithdrawal = 50000

	// WithdrawalFeePercent - комиссия за вывод в процентах
	WithdrawalFeePercent = 3
)

// Transaction представляет движение средств по кошельку пользователя
type Transaction struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	UserID      uint    `gorm:"not null;index" json:"user_id"`
	Type        string  `gorm:"size:20;not null;index" json:"type"`
	Amount      float64 `gorm:"not null" json:"amount"`
	Fee         int     `gorm:"not null;default:0" json:"fee"`
	Status      string  `gorm:"size:20;not null;default:'pending';index" json:"status"`
	OrderID     string  `gorm:"size:100;not null;default:'';index" json:"order_id,omitempty"`
	PaymentID   string  `gorm:"size:100;not null;default:''" json:"payment_id,omitempty"`
	UPIID       string  `gorm:"size:100;not null;default:''" json:"upi_id,omitempty"`
	Description string  `gorm:"size:255;not null;default:''" json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Transaction) TableName() string {
	return "transactions"
}

// IsPending возвращает true для необработанной транзакции
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// WithdrawalFee возвращает комиссию за вывод: ceil(amount * 3%)
func WithdrawalFee(amount float64) int {
	return int(math.Ceil(amount * float64(WithdrawalFeePercent) / 100))
}

// WithdrawalNet возвращает сумму к выплате после удержания комиссии
func WithdrawalNet(amount float64) int {
	return int(amount) - WithdrawalFee(amount)
}
