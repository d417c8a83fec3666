package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	"github.com/yourusername/maxbattle-api/pkg/payment"
)

// ============================================================================
// Моки репозиториев и внешних сервисов для тестов пакета service
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByReferralCode(code string) (*entity.User, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(userID uint, updates map[string]interface{}) error {
	args := m.Called(userID, updates)
	return args.Error(0)
}

func (m *MockUserRepository) SetActive(userID uint, active bool) error {
	args := m.Called(userID, active)
	return args.Error(0)
}

func (m *MockUserRepository) AddUPI(userID uint, upi string) error {
	args := m.Called(userID, upi)
	return args.Error(0)
}

func (m *MockUserRepository) List(limit, offset int) ([]entity.User, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ListEmails() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) ListReferralCodes() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) GetReferred(referrerID uint) ([]entity.User, error) {
	args := m.Called(referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

func (m *MockUserRepository) GetReferralStats(referrerID uint) (*repository.ReferralStats, error) {
	args := m.Called(referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ReferralStats), args.Error(1)
}

func (m *MockUserRepository) GetLeaderboard(limit, offset int) ([]entity.User, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) TTL(key string) (time.Duration, error) {
	args := m.Called(key)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockCacheRepository) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockTransactionRepository реализует repository.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(transaction *entity.Transaction) error {
	args := m.Called(transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(id uint) (*entity.Transaction, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByOrderID(orderID string) (*entity.Transaction, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(transaction *entity.Transaction) error {
	args := m.Called(transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByUser(userID uint, filters repository.TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error) {
	args := m.Called(userID, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) ListAll(filters repository.TransactionFilters, limit, offset int) ([]entity.Transaction, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Transaction), args.Get(1).(int64), args.Error(2)
}

// MockNotificationRepository реализует repository.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(notification *entity.Notification) error {
	args := m.Called(notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) CreateBatch(notifications []entity.Notification) error {
	args := m.Called(notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(userID uint) ([]entity.Notification, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(notificationID, userID uint) error {
	args := m.Called(notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) DeleteRead(userID uint) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockTournamentRepository реализует repository.TournamentRepository
type MockTournamentRepository struct {
	mock.Mock
}

func (m *MockTournamentRepository) Create(tournament *entity.Tournament) error {
	args := m.Called(tournament)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetByID(id uint) (*entity.Tournament, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) GetWithDetails(id uint) (*entity.Tournament, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) Update(tournament *entity.Tournament) error {
	args := m.Called(tournament)
	return args.Error(0)
}

func (m *MockTournamentRepository) UpdateStatus(tournamentID uint, status string) error {
	args := m.Called(tournamentID, status)
	return args.Error(0)
}

func (m *MockTournamentRepository) SetRoom(tournamentID uint, roomID, roomPassword string) error {
	args := m.Called(tournamentID, roomID, roomPassword)
	return args.Error(0)
}

func (m *MockTournamentRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockTournamentRepository) List(filters repository.TournamentFilters, limit, offset int) ([]entity.Tournament, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Tournament), args.Get(1).(int64), args.Error(2)
}

func (m *MockTournamentRepository) GetPlayers(tournamentID uint) ([]entity.Slot, error) {
	args := m.Called(tournamentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Slot), args.Error(1)
}

func (m *MockTournamentRepository) GetByParticipant(userID uint) ([]entity.Tournament, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) Stats() (*repository.TournamentStats, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TournamentStats), args.Error(1)
}

func (m *MockTournamentRepository) DueForStart(now time.Time) ([]entity.Tournament, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) PastDeadlineUnderfilled(now time.Time) ([]entity.Tournament, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Tournament), args.Error(1)
}

// MockEmailService реализует EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendOTP(ctx context.Context, toEmail, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, code, idempotencyKey)
	return args.Error(0)
}

func (m *MockEmailService) SendAnnouncement(ctx context.Context, toEmails []string, subject, message string) error {
	args := m.Called(ctx, toEmails, subject, message)
	return args.Error(0)
}

// MockGateway реализует payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(amount float64, receipt string) (*payment.Order, error) {
	args := m.Called(amount, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}
