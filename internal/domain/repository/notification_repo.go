package repository

import (
	"github.com/yourusername/maxbattle-api/internal/domain/entity"
)

// NotificationRepository определяет методы для работы с уведомлениями
type NotificationRepository interface {
	Create(notification *entity.Notification) error
	CreateBatch(notifications []entity.Notification) error
	ListByUser(userID uint) ([]entity.Notification, error)
	// MarkRead помечает уведомление прочитанным; userID защищает от чужих уведомлений
	MarkRead(notificationID, userID uint) error
	// DeleteRead удаляет все прочитанные уведомления пользователя
	DeleteRead(userID uint) (int64, error)
}
