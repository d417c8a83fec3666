package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/pkg/auth"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key", 24, "mb_session", false)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockCacheRepo := new(MockCacheRepository)
	mockEmail := new(MockEmailService)

	existing := &entity.User{ID: 1, Email: "taken@example.com"}
	mockUserRepo.On("GetByEmail", "taken@example.com").Return(existing, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, mockCacheRepo, mockEmail, newTestJWTService(), nil, 15, 60, 10)

	// Act
	err := authService.Register(context.Background(), "newuser", "Taken@Example.com", "password123", "ProGamer", "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "Занятый email должен давать ErrConflict")
	mockEmail.AssertNotCalled(t, "SendOTP")
	mockCacheRepo.AssertNotCalled(t, "SetJSON")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockCacheRepo := new(MockCacheRepository)
	mockEmail := new(MockEmailService)

	mockUserRepo.On("GetByEmail", "new@example.com").Return(nil, errors.New("record not found"))
	mockUserRepo.On("GetByUsername", "taken").Return(&entity.User{ID: 2, Username: "taken"}, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, mockCacheRepo, mockEmail, newTestJWTService(), nil, 15, 60, 10)

	// Act
	err := authService.Register(context.Background(), "taken", "new@example.com", "password123", "ProGamer", "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "Занятый username должен давать ErrConflict")
	mockEmail.AssertNotCalled(t, "SendOTP")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_InvalidReferralCode(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockCacheRepo := new(MockCacheRepository)
	mockEmail := new(MockEmailService)

	mockUserRepo.On("GetByEmail", "new@example.com").Return(nil, errors.New("record not found"))
	mockUserRepo.On("GetByUsername", "newuser").Return(nil, errors.New("record not found"))
	mockUserRepo.On("GetByReferralCode", "BADCODE1").Return(nil, errors.New("record not found"))

	authService := NewAuthService(mockUserRepo, nil, nil, mockCacheRepo, mockEmail, newTestJWTService(), nil, 15, 60, 10)

	// Act
	err := authService.Register(context.Background(), "newuser", "new@example.com", "password123", "ProGamer", "badcode1")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Несуществующий реферальный код должен давать ErrValidation")
	mockCacheRepo.AssertNotCalled(t, "SetJSON")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockCacheRepo := new(MockCacheRepository)
	mockEmail := new(MockEmailService)

	mockUserRepo.On("GetByEmail", "new@example.com").Return(nil, errors.New("record not found"))
	mockUserRepo.On("GetByUsername", "newuser").Return(nil, errors.New("record not found"))

	var stored pendingRegistration
	mockCacheRepo.On("SetJSON", "register:pending:new@example.com", mock.AnythingOfType("service.pendingRegistration"), 15*time.Minute).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(pendingRegistration)
		}).
		Return(nil)
	mockEmail.On("SendOTP", mock.Anything, "new@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	authService := NewAuthService(mockUserRepo, nil, nil, mockCacheRepo, mockEmail, newTestJWTService(), nil, 15, 60, 10)

	// Act
	err := authService.Register(context.Background(), "newuser", "New@Example.com", "password123", "ProGamer", "")

	// Assert
	require.NoError(t, err)
	assert.Len(t, stored.OTP, 6, "OTP должен состоять из 6 цифр")
	assert.Equal(t, "new@example.com", stored.Email, "Email должен быть нормализован к нижнему регистру")
	assert.NotEqual(t, "password123", stored.PasswordHash, "Пароль должен храниться только в виде хеша")
	mockCacheRepo.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
}

func TestAuthService_ResendOTP_CooldownActive(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockCacheRepo := new(MockCacheRepository)
	mockEmail := new(MockEmailService)

	mockCacheRepo.On("GetJSON", "register:pending:new@example.com", mock.Anything).Return(nil)
	mockCacheRepo.On("SetNX", "register:resend:new@example.com", "1", 60*time.Second).Return(false, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, mockCacheRepo, mockEmail, newTestJWTService(), nil, 15, 60, 10)

	// Act
	err := authService.ResendOTP(context.Background(), "new@example.com")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Активный кулдаун должен давать ErrValidation")
	mockEmail.AssertNotCalled(t, "SendOTP")
	mockCacheRepo.AssertExpectations(t)
}

func TestAuthService_ResendOTP_RegistrationExpired(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockCacheRepo := new(MockCacheRepository)
	mockEmail := new(MockEmailService)

	mockCacheRepo.On("GetJSON", "register:pending:gone@example.com", mock.Anything).Return(errors.New("redis: nil"))

	authService := NewAuthService(mockUserRepo, nil, nil, mockCacheRepo, mockEmail, newTestJWTService(), nil, 15, 60, 10)

	// Act
	err := authService.ResendOTP(context.Background(), "gone@example.com")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "Истекшая регистрация должна давать ErrNotFound")
	mockCacheRepo.AssertNotCalled(t, "SetNX")
}

func TestAuthService_Login_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)

	user := &entity.User{ID: 7, Username: "player", Email: "player@example.com", Role: entity.RoleUser, IsActive: true}
	hashed, err := entity.HashPassword("correct-password")
	require.NoError(t, err)
	user.Password = hashed

	mockUserRepo.On("GetByEmail", "player@example.com").Return(user, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, nil, nil, newTestJWTService(), nil, 15, 60, 10)

	// Act
	got, token, err := authService.Login("Player@Example.com", "correct-password")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID, "Должен вернуться найденный пользователь")
	assert.NotEmpty(t, token, "Токен сессии не должен быть пустым")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_ByUsername(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)

	user := &entity.User{ID: 7, Username: "player", Email: "player@example.com", Role: entity.RoleUser, IsActive: true}
	hashed, err := entity.HashPassword("correct-password")
	require.NoError(t, err)
	user.Password = hashed

	mockUserRepo.On("GetByUsername", "player").Return(user, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, nil, nil, newTestJWTService(), nil, 15, 60, 10)

	// Act
	_, token, err := authService.Login("player", "correct-password")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	mockUserRepo.AssertNotCalled(t, "GetByEmail")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)

	user := &entity.User{ID: 7, Email: "player@example.com", IsActive: true}
	hashed, err := entity.HashPassword("correct-password")
	require.NoError(t, err)
	user.Password = hashed

	mockUserRepo.On("GetByEmail", "player@example.com").Return(user, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, nil, nil, newTestJWTService(), nil, 15, 60, 10)

	// Act
	_, _, err = authService.Login("player@example.com", "wrong-password")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized), "Неверный пароль должен давать ErrUnauthorized")
}

func TestAuthService_Login_BannedUser(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)

	user := &entity.User{ID: 7, Email: "banned@example.com", IsActive: false}
	hashed, err := entity.HashPassword("correct-password")
	require.NoError(t, err)
	user.Password = hashed

	mockUserRepo.On("GetByEmail", "banned@example.com").Return(user, nil)

	authService := NewAuthService(mockUserRepo, nil, nil, nil, nil, newTestJWTService(), nil, 15, 60, 10)

	// Act
	_, _, err = authService.Login("banned@example.com", "correct-password")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden), "Забаненный аккаунт должен давать ErrForbidden")
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByEmail", "ghost@example.com").Return(nil, errors.New("record not found"))

	authService := NewAuthService(mockUserRepo, nil, nil, nil, nil, newTestJWTService(), nil, 15, 60, 10)

	// Act
	_, _, err := authService.Login("ghost@example.com", "whatever")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized), "Несуществующий логин должен давать ErrUnauthorized, а не ErrNotFound")
}

func TestNewVerifiedUser_ReferralBonusForReferee(t *testing.T) {
	// Arrange
	pending := &pendingRegistration{
		Username:     "newplayer",
		Email:        "new@example.com",
		PasswordHash: "$2a$10$hash",
		GameName:     "ProGamer",
		ReferralCode: "FRIEND42",
	}
	referrer := &entity.User{ID: 9, Username: "friend", ReferralCode: "FRIEND42"}

	// Act
	user := newVerifiedUser(pending, "MYCODE99", referrer, 5)

	// Assert
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, uint(9), *user.ReferredBy)
	assert.Equal(t, float64(5), user.Bonus, "Приглашённый получает приветственный бонус в стартовый баланс")
	assert.Equal(t, float64(5), user.TotalBalance, "Общий баланс должен учитывать приветственный бонус")
	assert.True(t, user.IsVerified)
	assert.Equal(t, "MYCODE99", user.ReferralCode)
}

func TestNewVerifiedUser_NoReferrer(t *testing.T) {
	// Arrange
	pending := &pendingRegistration{Username: "solo", Email: "solo@example.com", PasswordHash: "$2a$10$hash"}

	// Act
	user := newVerifiedUser(pending, "MYCODE99", nil, 5)

	// Assert
	assert.Nil(t, user.ReferredBy)
	assert.Zero(t, user.Bonus, "Без реферального кода стартовый баланс пуст")
	assert.Zero(t, user.TotalBalance)
}

func TestAuthService_GenerateUniqueReferralCode(t *testing.T) {
	// Arrange
	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("GetByReferralCode", mock.AnythingOfType("string")).Return(nil, errors.New("record not found"))

	authService := NewAuthService(mockUserRepo, nil, nil, nil, nil, newTestJWTService(), nil, 15, 60, 10)

	// Act
	code, err := authService.generateUniqueReferralCode()

	// Assert
	require.NoError(t, err)
	assert.Len(t, code, referralCodeLength, "Длина реферального кода должна совпадать с заданной")
	for _, ch := range code {
		assert.Contains(t, referralCodeCharset, string(ch), "Код должен содержать только символы из разрешенного алфавита")
	}
}

func TestGenerateOTP(t *testing.T) {
	// Act
	otp, err := generateOTP()

	// Assert
	require.NoError(t, err)
	assert.Len(t, otp, 6, "OTP должен состоять из 6 символов")
	for _, ch := range otp {
		assert.True(t, ch >= '0' && ch <= '9', "OTP должен содержать только цифры")
	}
}
