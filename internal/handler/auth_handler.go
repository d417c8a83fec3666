package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/maxbattle-api/internal/handler/dto"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/service"
	"github.com/yourusername/maxbattle-api/pkg/auth"
)

// RegisterRequest представляет запрос на начало регистрации
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	GameName     string `json:"gameName" binding:"omitempty,max=100"`
	ReferralCode string `json:"referralCode" binding:"omitempty,max=20"`
}

// VerifyOTPRequest представляет запрос подтверждения кода
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// ResendOTPRequest представляет запрос повторной отправки кода
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// LoginRequest представляет запрос на вход (email или username)
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler обрабатывает запросы аутентификации
type AuthHandler struct {
	authService *service.AuthService
	jwtService  *auth.JWTService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtService:  jwtService,
	}
}

// Register обрабатывает запрос на начало регистрации
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.GameName, req.ReferralCode); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent to your email"})
}

// VerifyOTP подтверждает код и завершает регистрацию
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.authService.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.jwtService.SetSessionCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{
		"user":  dto.NewUserResponse(user),
		"token": token,
	})
}

// ResendOTP повторно отправляет код подтверждения
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.ResendOTP(c.Request.Context(), req.Email); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// Login обрабатывает запрос на вход
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.authService.Login(req.Login, req.Password)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.jwtService.SetSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"user":  dto.NewUserResponse(user),
		"token": token,
	})
}

// Logout завершает сессию, удаляя куку
func (h *AuthHandler) Logout(c *gin.Context) {
	h.jwtService.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Status возвращает текущего пользователя по сессии.
// Клиент вызывает его после каждой операции с балансом.
func (h *AuthHandler) Status(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	user, err := h.authService.GetByID(userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	if !user.IsActive {
		h.jwtService.ClearSessionCookie(c)
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is banned"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserResponse(user)})
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AuthHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
