package service

import (
	"log"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	"github.com/yourusername/maxbattle-api/internal/websocket"
)

// NotificationService предоставляет методы для работы с уведомлениями
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	hub              *websocket.Hub
}

// NewNotificationService создает новый сервис уведомлений
func NewNotificationService(notificationRepo repository.NotificationRepository, hub *websocket.Hub) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		hub:              hub,
	}
}

// ListByUser возвращает уведомления пользователя, новые первыми
func (s *NotificationService) ListByUser(userID uint) ([]entity.Notification, error) {
	return s.notificationRepo.ListByUser(userID)
}

// MarkRead помечает уведомление прочитанным
func (s *NotificationService) MarkRead(notificationID, userID uint) error {
	return s.notificationRepo.MarkRead(notificationID, userID)
}

// DeleteRead удаляет все прочитанные уведомления пользователя
func (s *NotificationService) DeleteRead(userID uint) (int64, error) {
	return s.notificationRepo.DeleteRead(userID)
}

// Notify сохраняет уведомление и отправляет его в активные websocket-соединения
func (s *NotificationService) Notify(userID uint, title, message string) error {
	notification := &entity.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		log.Printf("[NotificationService] Ошибка создания уведомления для пользователя ID=%d: %v", userID, err)
		return err
	}

	if s.hub != nil {
		s.hub.SendToUser(userID, websocket.Event{
			Type: websocket.EventNotification,
			Data: notification,
		})
	}
	return nil
}
