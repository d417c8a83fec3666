package dto

import (
	"time"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
)

// UserResponse представляет пользователя в API (собственный профиль)
type UserResponse struct {
	ID           uint       `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	GameName     string     `json:"gameName"`
	Role         string     `json:"role"`
	TotalBalance float64    `json:"totalBalance"`
	Winning      float64    `json:"winning"`
	Bonus        float64    `json:"bonus"`
	Deposited    float64    `json:"deposited"`
	IsActive     bool       `json:"isActive"`
	IsVerified   bool       `json:"isVerified"`
	ReferralCode string     `json:"referralCode"`
	UPI          []string   `json:"upi"`
	LastSpinTime *time.Time `json:"lastSpinTime,omitempty"`
	NextSpinAt   *time.Time `json:"nextSpinAt,omitempty"`

	TournamentsPlayed int64     `json:"tournamentsPlayed"`
	WinsCount         int64     `json:"winsCount"`
	TotalPrizeWon     float64   `json:"totalPrizeWon"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewUserResponse собирает ответ из сущности
func NewUserResponse(u *entity.User) *UserResponse {
	resp := &UserResponse{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		GameName:          u.GameName,
		Role:              u.Role,
		TotalBalance:      u.TotalBalance,
		Winning:           u.Winning,
		Bonus:             u.Bonus,
		Deposited:         u.Deposited,
		IsActive:          u.IsActive,
		IsVerified:        u.IsVerified,
		ReferralCode:      u.ReferralCode,
		UPI:               u.UPI,
		LastSpinTime:      u.LastSpinTime,
		TournamentsPlayed: u.TournamentsPlayed,
		WinsCount:         u.WinsCount,
		TotalPrizeWon:     u.TotalPrizeWon,
		CreatedAt:         u.CreatedAt,
	}
	if resp.UPI == nil {
		resp.UPI = []string{}
	}
	if u.LastSpinTime != nil {
		next := u.NextSpinAt()
		resp.NextSpinAt = &next
	}
	return resp
}

// LeaderboardUserDTO представляет одного пользователя в лидерборде
type LeaderboardUserDTO struct {
	Rank          int     `json:"rank"`
	UserID        uint    `json:"userId"`
	Username      string  `json:"username"`
	GameName      string  `json:"gameName"`
	WinsCount     int64   `json:"winsCount"`
	TotalPrizeWon float64 `json:"totalPrizeWon"`
}

// PaginatedLeaderboardResponse представляет пагинированный ответ для лидерборда
type PaginatedLeaderboardResponse struct {
	Users   []*LeaderboardUserDTO `json:"users"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
}

// NewLeaderboardResponse собирает страницу лидерборда с вычисленными рангами
func NewLeaderboardResponse(users []entity.User, total int64, page, perPage int) *PaginatedLeaderboardResponse {
	resp := &PaginatedLeaderboardResponse{
		Users:   make([]*LeaderboardUserDTO, 0, len(users)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
	for i := range users {
		resp.Users = append(resp.Users, &LeaderboardUserDTO{
			Rank:          (page-1)*perPage + i + 1,
			UserID:        users[i].ID,
			Username:      users[i].Username,
			GameName:      users[i].GameName,
			WinsCount:     users[i].WinsCount,
			TotalPrizeWon: users[i].TotalPrizeWon,
		})
	}
	return resp
}

// AdminUserDTO представляет пользователя в админском списке
type AdminUserDTO struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	GameName     string    `json:"gameName"`
	Role         string    `json:"role"`
	TotalBalance float64   `json:"totalBalance"`
	Winning      float64   `json:"winning"`
	IsActive     bool      `json:"isActive"`
	ReferredBy   *uint     `json:"referredBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewAdminUserList собирает админский список пользователей
func NewAdminUserList(users []entity.User) []*AdminUserDTO {
	result := make([]*AdminUserDTO, 0, len(users))
	for i := range users {
		u := &users[i]
		result = append(result, &AdminUserDTO{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			GameName:     u.GameName,
			Role:         u.Role,
			TotalBalance: u.TotalBalance,
			Winning:      u.Winning,
			IsActive:     u.IsActive,
			ReferredBy:   u.ReferredBy,
			CreatedAt:    u.CreatedAt,
		})
	}
	return result
}
