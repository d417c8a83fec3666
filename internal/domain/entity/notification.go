package entity

import "time"

// Notification представляет уведомление пользователя
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Message   string    `gorm:"size:500;not null" json:"message"`
	Seen      bool      `gorm:"not null;default:false;index" json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Notification) TableName() string {
	return "notifications"
}
