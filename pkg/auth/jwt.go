package auth

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

// JWTCustomClaims представляет пользовательские поля JWT токена
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService предоставляет методы для работы с JWT токенами сессии
type JWTService struct {
	secretKey     string
	expirationHrs int
	cookieName    string
	secureCookie  bool
}

// NewJWTService создает новый сервис JWT
func NewJWTService(secretKey string, expirationHrs int, cookieName string, secureCookie bool) *JWTService {
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if cookieName == "" {
		cookieName = "mb_session"
	}
	return &JWTService{
		secretKey:     secretKey,
		expirationHrs: expirationHrs,
		cookieName:    cookieName,
		secureCookie:  secureCookie,
	}
}

// CookieName возвращает имя сессионной куки
func (s *JWTService) CookieName() string {
	return s.cookieName
}

// GenerateToken создает новый JWT токен для пользователя
func (s *JWTService) GenerateToken(userID uint, email string, role string) (string, error) {
	expirationTime := time.Now().Add(time.Duration(s.expirationHrs) * time.Hour)

	claims := &JWTCustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		log.Printf("[JWTService] Ошибка подписи токена для пользователя ID=%d: %v", userID, err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ParseToken проверяет и разбирает JWT токен
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token is invalid", apperrors.ErrUnauthorized)
	}

	return claims, nil
}

// SetSessionCookie устанавливает HttpOnly куку с токеном сессии
func (s *JWTService) SetSessionCookie(c *gin.Context, token string) {
	maxAge := s.expirationHrs * 3600
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, token, maxAge, "/", "", s.secureCookie, true)
}

// ClearSessionCookie удаляет сессионную куку (logout)
func (s *JWTService) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, "", -1, "/", "", s.secureCookie, true)
}
