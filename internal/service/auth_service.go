package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/pkg/auth"
)

const (
	pendingRegistrationKeyPrefix = "register:pending:"
	otpResendKeyPrefix           = "register:resend:"
	referralCodeLength           = 8
	referralCodeCharset          = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// pendingRegistration хранит данные регистрации до подтверждения OTP
type pendingRegistration struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	GameName     string    `json:"game_name"`
	ReferralCode string    `json:"referral_code"` // код пригласившего, может быть пустым
	OTP          string    `json:"otp"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthService предоставляет методы для аутентификации и регистрации
type AuthService struct {
	userRepo         repository.UserRepository
	txRepo           repository.TransactionRepository
	notificationRepo repository.NotificationRepository
	cacheRepo        repository.CacheRepository
	emailService     EmailService
	jwtService       *auth.JWTService
	db               *gorm.DB
	otpTTL           time.Duration
	resendCooldown   time.Duration
	referralBonus    float64
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(
	userRepo repository.UserRepository,
	txRepo repository.TransactionRepository,
	notificationRepo repository.NotificationRepository,
	cacheRepo repository.CacheRepository,
	emailService EmailService,
	jwtService *auth.JWTService,
	db *gorm.DB,
	otpTTLMinutes int,
	resendCooldownSec int,
	referralBonus float64,
) *AuthService {
	if otpTTLMinutes <= 0 {
		otpTTLMinutes = 15
	}
	if resendCooldownSec <= 0 {
		resendCooldownSec = 60
	}
	return &AuthService{
		userRepo:         userRepo,
		txRepo:           txRepo,
		notificationRepo: notificationRepo,
		cacheRepo:        cacheRepo,
		emailService:     emailService,
		jwtService:       jwtService,
		db:               db,
		otpTTL:           time.Duration(otpTTLMinutes) * time.Minute,
		resendCooldown:   time.Duration(resendCooldownSec) * time.Second,
		referralBonus:    referralBonus,
	}
}

// Register начинает регистрацию: сохраняет данные в Redis и отправляет OTP на почту.
// Пользователь в БД создается только после подтверждения кода.
func (s *AuthService) Register(ctx context.Context, username, email, password, gameName, referredByCode string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	// Проверяем, что email и username свободны
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}
	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return fmt.Errorf("%w: username already taken", apperrors.ErrConflict)
	}

	// Реферальный код проверяем сразу, чтобы не терять бонус из-за опечатки
	if referredByCode != "" {
		if _, err := s.userRepo.GetByReferralCode(strings.ToUpper(referredByCode)); err != nil {
			return fmt.Errorf("%w: invalid referral code", apperrors.ErrValidation)
		}
	}

	// Хешируем пароль заранее - в Redis попадает только хеш
	hashed, err := entity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	pending := pendingRegistration{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		GameName:     strings.TrimSpace(gameName),
		ReferralCode: strings.ToUpper(referredByCode),
		OTP:          otp,
		CreatedAt:    time.Now(),
	}

	if err := s.cacheRepo.SetJSON(pendingRegistrationKeyPrefix+email, pending, s.otpTTL); err != nil {
		return fmt.Errorf("failed to store pending registration: %w", err)
	}

	if err := s.emailService.SendOTP(ctx, email, otp, fmt.Sprintf("otp-%s-%s", email, otp)); err != nil {
		log.Printf("[AuthService] Ошибка отправки OTP на %s: %v", email, err)
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	log.Printf("[AuthService] Начата регистрация для %s, OTP отправлен", email)
	return nil
}

// VerifyOTP подтверждает код, создает пользователя и начисляет реферальный бонус.
// Возвращает созданного пользователя и JWT токен сессии.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*entity.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var pending pendingRegistration
	if err := s.cacheRepo.GetJSON(pendingRegistrationKeyPrefix+email, &pending); err != nil {
		return nil, "", fmt.Errorf("%w: registration expired or not found", apperrors.ErrNotFound)
	}

	if pending.OTP != strings.TrimSpace(code) {
		return nil, "", fmt.Errorf("%w: incorrect otp", apperrors.ErrValidation)
	}

	// Повторная проверка на гонку: пока ждали код, email могли занять
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		_ = s.cacheRepo.Delete(pendingRegistrationKeyPrefix + email)
		return nil, "", fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}

	var referrer *entity.User
	if pending.ReferralCode != "" {
		r, err := s.userRepo.GetByReferralCode(pending.ReferralCode)
		if err == nil {
			referrer = r
		}
	}

	myCode, err := s.generateUniqueReferralCode()
	if err != nil {
		return nil, "", err
	}

	user := newVerifiedUser(&pending, myCode, referrer, s.referralBonus)

	// Создание пользователя и начисление бонусов обеим сторонам - одна транзакция
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if referrer != nil && s.referralBonus > 0 {
			welcomeTx := &entity.Transaction{
				UserID:      user.ID,
				Type:        entity.TransactionTypeBonus,
				Amount:      s.referralBonus,
				Status:      entity.TransactionStatusCompleted,
				Description: fmt.Sprintf("Welcome bonus for joining with %s's code", referrer.Username),
			}
			if err := tx.Create(welcomeTx).Error; err != nil {
				return fmt.Errorf("failed to record welcome bonus transaction: %w", err)
			}

			welcomeNotif := &entity.Notification{
				UserID:  user.ID,
				Title:   "Welcome bonus",
				Message: fmt.Sprintf("₹%.0f bonus added to your wallet for joining with a referral code!", s.referralBonus),
			}
			if err := tx.Create(welcomeNotif).Error; err != nil {
				return fmt.Errorf("failed to create welcome notification: %w", err)
			}

			updates := map[string]interface{}{
				"bonus":         gorm.Expr("bonus + ?", s.referralBonus),
				"total_balance": gorm.Expr("total_balance + ?", s.referralBonus),
			}
			if err := tx.Model(&entity.User{}).Where("id = ?", referrer.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to credit referral bonus: %w", err)
			}

			bonusTx := &entity.Transaction{
				UserID:      referrer.ID,
				Type:        entity.TransactionTypeBonus,
				Amount:      s.referralBonus,
				Status:      entity.TransactionStatusCompleted,
				Description: fmt.Sprintf("Referral bonus for inviting %s", user.Username),
			}
			if err := tx.Create(bonusTx).Error; err != nil {
				return fmt.Errorf("failed to record referral bonus transaction: %w", err)
			}

			notif := &entity.Notification{
				UserID:  referrer.ID,
				Title:   "Referral bonus",
				Message: fmt.Sprintf("%s joined with your code. ₹%.0f bonus added to your wallet!", user.Username, s.referralBonus),
			}
			if err := tx.Create(notif).Error; err != nil {
				return fmt.Errorf("failed to create referral notification: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	_ = s.cacheRepo.Delete(pendingRegistrationKeyPrefix + email)
	_ = s.cacheRepo.Delete(otpResendKeyPrefix + email)

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	log.Printf("[AuthService] Пользователь %s (ID=%d) зарегистрирован", user.Username, user.ID)
	return user, token, nil
}

// ResendOTP повторно отправляет код подтверждения с защитой от частых запросов
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var pending pendingRegistration
	if err := s.cacheRepo.GetJSON(pendingRegistrationKeyPrefix+email, &pending); err != nil {
		return fmt.Errorf("%w: registration expired or not found", apperrors.ErrNotFound)
	}

	// SetNX работает как кулдаун: пока ключ жив, повторная отправка запрещена
	ok, err := s.cacheRepo.SetNX(otpResendKeyPrefix+email, "1", s.resendCooldown)
	if err != nil {
		return fmt.Errorf("failed to check resend cooldown: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: please wait before requesting another code", apperrors.ErrValidation)
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	pending.OTP = otp

	if err := s.cacheRepo.SetJSON(pendingRegistrationKeyPrefix+email, pending, s.otpTTL); err != nil {
		return fmt.Errorf("failed to store pending registration: %w", err)
	}

	if err := s.emailService.SendOTP(ctx, email, otp, fmt.Sprintf("otp-%s-%s", email, otp)); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	log.Printf("[AuthService] OTP повторно отправлен на %s", email)
	return nil
}

// Login проверяет учетные данные и возвращает пользователя с токеном сессии.
// В качестве логина принимается email или username.
func (s *AuthService) Login(login, password string) (*entity.User, string, error) {
	login = strings.TrimSpace(login)

	var user *entity.User
	var err error
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(strings.ToLower(login))
	} else {
		user, err = s.userRepo.GetByUsername(login)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	if !user.CheckPassword(password) {
		return nil, "", fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, "", fmt.Errorf("%w: account is banned", apperrors.ErrForbidden)
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	log.Printf("[AuthService] Пользователь %s (ID=%d) вошел в систему", user.Username, user.ID)
	return user, token, nil
}

// GetByID возвращает пользователя для проверки текущей сессии
func (s *AuthService) GetByID(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// newVerifiedUser собирает пользователя после подтверждения OTP.
// Приветственный бонус за реферальный код зачисляется обеим сторонам:
// приглашённому сразу в стартовый баланс, рефереру - отдельным обновлением.
func newVerifiedUser(pending *pendingRegistration, referralCode string, referrer *entity.User, signupBonus float64) *entity.User {
	user := &entity.User{
		Username:     pending.Username,
		Email:        pending.Email,
		Password:     pending.PasswordHash, // уже bcrypt, хук BeforeSave его не тронет
		GameName:     pending.GameName,
		Role:         entity.RoleUser,
		IsActive:     true,
		IsVerified:   true,
		ReferralCode: referralCode,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.ID
		if signupBonus > 0 {
			user.Bonus = signupBonus
			user.RecalculateTotal()
		}
	}
	return user
}

// generateUniqueReferralCode генерирует реферальный код, которого еще нет в БД
func (s *AuthService) generateUniqueReferralCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := randomString(referralCodeLength, referralCodeCharset)
		if err != nil {
			return "", err
		}
		if _, err := s.userRepo.GetByReferralCode(code); err != nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique referral code")
}

// generateOTP возвращает шестизначный числовой код
func generateOTP() (string, error) {
	return randomString(6, "0123456789")
}

func randomString(length int, charset string) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
