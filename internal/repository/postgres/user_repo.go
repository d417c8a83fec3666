package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя
func (r *UserRepo) Create(user *entity.User) error {
	return r.db.Create(user).Error
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername возвращает пользователя по имени пользователя
func (r *UserRepo) GetByUsername(username string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByReferralCode возвращает пользователя по реферальному коду
func (r *UserRepo) GetByReferralCode(code string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("referral_code = ?", code).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update обновляет информацию о пользователе
func (r *UserRepo) Update(user *entity.User) error {
	return r.db.Save(user).Error
}

// UpdateProfile обновляет профиль пользователя без изменения пароля
func (r *UserRepo) UpdateProfile(userID uint, updates map[string]interface{}) error {
	// Пароль через этот метод не обновляется
	delete(updates, "password")

	updates["updated_at"] = time.Now()

	return r.db.Model(&entity.User{}).Where("id = ?", userID).Updates(updates).Error
}

// SetActive включает или блокирует аккаунт пользователя
func (r *UserRepo) SetActive(userID uint, active bool) error {
	result := r.db.Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddUPI добавляет UPI id пользователю, избегая дубликатов
func (r *UserRepo) AddUPI(userID uint, upi string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user entity.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		for _, existing := range user.UPI {
			if existing == upi {
				return nil
			}
		}

		user.UPI = append(user.UPI, upi)
		return tx.Model(&user).Update("upi", user.UPI).Error
	})
}

// List возвращает список пользователей с пагинацией и общим количеством
func (r *UserRepo) List(limit, offset int) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	if err := r.db.Model(&entity.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Limit(limit).Offset(offset).Order("id").Find(&users).Error
	return users, total, err
}

// ListEmails возвращает email всех активных верифицированных пользователей
func (r *UserRepo) ListEmails() ([]string, error) {
	var emails []string
	err := r.db.Model(&entity.User{}).
		Where("is_active = ? AND is_verified = ?", true, true).
		Pluck("email", &emails).Error
	return emails, err
}

// ListReferralCodes возвращает все существующие реферальные коды
func (r *UserRepo) ListReferralCodes() ([]string, error) {
	var codes []string
	err := r.db.Model(&entity.User{}).Pluck("referral_code", &codes).Error
	return codes, err
}

// GetReferred возвращает пользователей, пришедших по коду referrerID
func (r *UserRepo) GetReferred(referrerID uint) ([]entity.User, error) {
	var users []entity.User
	err := r.db.Where("referred_by = ?", referrerID).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

// GetReferralStats возвращает агрегированную статистику рефералов пользователя.
// Сумма бонусов считается по завершённым bonus-транзакциям реферера с пометкой referral.
func (r *UserRepo) GetReferralStats(referrerID uint) (*repository.ReferralStats, error) {
	stats := &repository.ReferralStats{}

	if err := r.db.Model(&entity.User{}).
		Where("referred_by = ?", referrerID).
		Count(&stats.TotalReferrals).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&entity.User{}).
		Where("referred_by = ? AND is_active = ? AND is_verified = ?", referrerID, true, true).
		Count(&stats.ActiveReferrals).Error; err != nil {
		return nil, err
	}

	var totalBonus *float64
	if err := r.db.Model(&entity.Transaction{}).
		Where("user_id = ? AND type = ? AND status = ? AND description LIKE ?",
			referrerID, entity.TransactionTypeBonus, entity.TransactionStatusCompleted, "Referral%").
		Select("SUM(amount)").
		Scan(&totalBonus).Error; err != nil {
		return nil, err
	}
	if totalBonus != nil {
		stats.TotalBonusEarned = *totalBonus
	}

	return stats, nil
}

// GetLeaderboard возвращает пользователей для лидерборда с пагинацией и общим количеством,
// отсортированных по количеству побед и общей сумме выигрыша.
func (r *UserRepo) GetLeaderboard(limit, offset int) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	// Используем транзакцию для согласованности чтения данных и общего количества
	tx := r.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return nil, 0, tx.Error
	}

	err := tx.Model(&entity.User{}).Where("is_verified = ?", true).Count(&total).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	// Сортируем по wins_count DESC, затем total_prize_won DESC, и ID для стабильности
	err = tx.Where("is_verified = ?", true).
		Order("wins_count DESC, total_prize_won DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Select("id", "username", "game_name", "wins_count", "total_prize_won", "tournaments_played").
		Find(&users).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
