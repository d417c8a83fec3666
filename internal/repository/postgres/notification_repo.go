package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

// NotificationRepo реализует repository.NotificationRepository
type NotificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo создает новый репозиторий уведомлений
func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create создает уведомление
func (r *NotificationRepo) Create(notification *entity.Notification) error {
	return r.db.Create(notification).Error
}

// CreateBatch создает уведомления пакетом
func (r *NotificationRepo) CreateBatch(notifications []entity.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.Create(&notifications).Error
}

// ListByUser возвращает уведомления пользователя, новые первыми
func (r *NotificationRepo) ListByUser(userID uint) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).Error
	return notifications, err
}

// MarkRead помечает уведомление прочитанным
func (r *NotificationRepo) MarkRead(notificationID, userID uint) error {
	result := r.db.Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("seen", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteRead удаляет прочитанные уведомления пользователя
func (r *NotificationRepo) DeleteRead(userID uint) (int64, error) {
	result := r.db.Where("user_id = ? AND seen = ? AND created_at < ?", userID, true, time.Now()).
		Delete(&entity.Notification{})
	return result.RowsAffected, result.Error
}
