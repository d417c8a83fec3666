package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

// TransactionRepo реализует repository.TransactionRepository
type TransactionRepo struct {
	db *gorm.DB
}

// NewTransactionRepo создает новый репозиторий транзакций
func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Create создает транзакцию
func (r *TransactionRepo) Create(transaction *entity.Transaction) error {
	return r.db.Create(transaction).Error
}

// GetByID возвращает транзакцию по ID
func (r *TransactionRepo) GetByID(id uint) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := r.db.First(&transaction, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &transaction, nil
}

// GetByOrderID возвращает транзакцию по order id платёжного шлюза
func (r *TransactionRepo) GetByOrderID(orderID string) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := r.db.Where("order_id = ?", orderID).First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &transaction, nil
}

// Update сохраняет транзакцию
func (r *TransactionRepo) Update(transaction *entity.Transaction) error {
	return r.db.Save(transaction).Error
}

func applyTransactionFilters(query *gorm.DB, filters repository.TransactionFilters) *gorm.DB {
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	return query
}

// ListByUser возвращает транзакции пользователя с фильтрами и пагинацией
func (r *TransactionRepo) ListByUser(userID uint, filters repository.TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error) {
	var transactions []entity.Transaction
	var total int64

	query := applyTransactionFilters(r.db.Model(&entity.Transaction{}).Where("user_id = ?", userID), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&transactions).Error
	return transactions, total, err
}

// ListAll возвращает все транзакции с фильтрами и пагинацией (для админки)
func (r *TransactionRepo) ListAll(filters repository.TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error) {
	var transactions []entity.Transaction
	var total int64

	query := applyTransactionFilters(r.db.Model(&entity.Transaction{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&transactions).Error
	return transactions, total, err
}
