package repository

import (
	"github.com/yourusername/maxbattle-api/internal/domain/entity"
)

// ReferralStats содержит агрегированную статистику реферальной программы пользователя
type ReferralStats struct {
	TotalReferrals   int64   `json:"totalReferrals"`
	ActiveReferrals  int64   `json:"activeReferrals"`
	TotalBonusEarned float64 `json:"totalBonusEarned"`
}

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByUsername(username string) (*entity.User, error)
	GetByReferralCode(code string) (*entity.User, error)
	Update(user *entity.User) error
	// UpdateProfile точечно обновляет поля пользователя без full Save
	UpdateProfile(userID uint, updates map[string]interface{}) error
	SetActive(userID uint, active bool) error
	AddUPI(userID uint, upi string) error
	List(limit, offset int) ([]entity.User, int64, error)
	ListEmails() ([]string, error)
	ListReferralCodes() ([]string, error)
	GetReferred(referrerID uint) ([]entity.User, error)
	GetReferralStats(referrerID uint) (*ReferralStats, error)
	// GetLeaderboard возвращает пользователей, отсортированных по победам и выигрышу
	GetLeaderboard(limit, offset int) ([]entity.User, int64, error)
}
