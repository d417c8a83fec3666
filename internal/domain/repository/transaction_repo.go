package repository

import (
	"github.com/yourusername/maxbattle-api/internal/domain/entity"
)

// TransactionFilters определяет фильтры списка транзакций
type TransactionFilters struct {
	Type   string // Фильтр по типу (deposit, withdrawal, winning, ...)
	Status string // Фильтр по статусу (pending, completed, failed)
}

// TransactionRepository определяет методы для работы с транзакциями
type TransactionRepository interface {
	Create(transaction *entity.Transaction) error
	GetByID(id uint) (*entity.Transaction, error)
	GetByOrderID(orderID string) (*entity.Transaction, error)
	Update(transaction *entity.Transaction) error
	ListByUser(userID uint, filters TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error)
	ListAll(filters TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error)
}
