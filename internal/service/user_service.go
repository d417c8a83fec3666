package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

const (
	leaderboardCacheKey = "leaderboard:top"
	leaderboardCacheTTL = time.Minute
)

// leaderboardPage - кешируемое представление страницы лидерборда
type leaderboardPage struct {
	Users []entity.User `json:"users"`
	Total int64         `json:"total"`
}

// UserService предоставляет методы для работы с пользователями
type UserService struct {
	userRepo  repository.UserRepository
	cacheRepo repository.CacheRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, cacheRepo repository.CacheRepository) *UserService {
	return &UserService{
		userRepo:  userRepo,
		cacheRepo: cacheRepo,
	}
}

// GetByID возвращает пользователя по ID
func (s *UserService) GetByID(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// GetLeaderboard возвращает страницу лидерборда. Первая страница кешируется
// на минуту - её запрашивает каждый посетитель главной.
func (s *UserService) GetLeaderboard(limit, offset int) ([]entity.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	useCache := offset == 0 && limit == 50
	if useCache {
		var page leaderboardPage
		if err := s.cacheRepo.GetJSON(leaderboardCacheKey, &page); err == nil {
			return page.Users, page.Total, nil
		}
	}

	users, total, err := s.userRepo.GetLeaderboard(limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if useCache {
		if err := s.cacheRepo.SetJSON(leaderboardCacheKey, leaderboardPage{Users: users, Total: total}, leaderboardCacheTTL); err != nil {
			log.Printf("[UserService] Ошибка кеширования лидерборда: %v", err)
		}
	}

	return users, total, nil
}

// GetReferralStats возвращает статистику реферальной программы пользователя
func (s *UserService) GetReferralStats(userID uint) (*repository.ReferralStats, error) {
	return s.userRepo.GetReferralStats(userID)
}

// ListReferralCodes возвращает все активные реферальные коды.
// Клиент использует список для мгновенной проверки кода при регистрации.
func (s *UserService) ListReferralCodes() ([]string, error) {
	return s.userRepo.ListReferralCodes()
}

// AddUPI добавляет UPI id в профиль пользователя
func (s *UserService) AddUPI(userID uint, upiID string) (*entity.User, error) {
	upiID = strings.TrimSpace(upiID)
	if upiID == "" || !strings.Contains(upiID, "@") {
		return nil, fmt.Errorf("%w: upi id must look like name@bank", apperrors.ErrValidation)
	}

	if err := s.userRepo.AddUPI(userID, upiID); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(userID)
}

// List возвращает страницу пользователей (админ)
func (s *UserService) List(limit, offset int) ([]entity.User, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.userRepo.List(limit, offset)
}

// SetActive банит или разбанивает пользователя. Админ не может забанить себя.
func (s *UserService) SetActive(adminID, userID uint, active bool) (*entity.User, error) {
	if adminID == userID && !active {
		return nil, fmt.Errorf("%w: you cannot ban yourself", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() && !active {
		return nil, fmt.Errorf("%w: admin accounts cannot be banned", apperrors.ErrForbidden)
	}

	if err := s.userRepo.SetActive(userID, active); err != nil {
		return nil, err
	}
	user.IsActive = active

	log.Printf("[UserService] Пользователь ID=%d: active=%t (admin ID=%d)", userID, active, adminID)
	return user, nil
}

// ListEmails возвращает адреса всех активных пользователей для рассылки
func (s *UserService) ListEmails() ([]string, error) {
	return s.userRepo.ListEmails()
}
