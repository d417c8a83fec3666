package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/service"
)

// NotificationHandler обрабатывает запросы уведомлений
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый обработчик уведомлений
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List возвращает уведомления пользователя, новые первыми
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	notifications, err := h.notificationService.ListByUser(userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead помечает уведомление прочитанным
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	notificationID := c.MustGet("notificationID").(uint)

	if err := h.notificationService.MarkRead(notificationID, userID); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// DeleteRead удаляет все прочитанные уведомления пользователя
func (h *NotificationHandler) DeleteRead(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	deleted, err := h.notificationService.DeleteRead(userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in NotificationHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
