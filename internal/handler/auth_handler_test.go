package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/maxbattle-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestGinContext создает *gin.Context для тестов с JSON body
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// ============================================================================
// Request validation tests — не требуют реального AuthService
// Handler возвращает 400 до вызова сервиса
// ============================================================================

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	handler := &AuthHandler{} // nil services — OK для validation tests

	tests := []struct {
		name string
		body interface{}
	}{
		{
			name: "empty body",
			body: nil,
		},
		{
			name: "missing email",
			body: map[string]string{"username": "player", "password": "secret123"},
		},
		{
			name: "malformed email",
			body: map[string]string{"username": "player", "email": "not-an-email", "password": "secret123"},
		},
		{
			name: "short username",
			body: map[string]string{"username": "ab", "email": "player@example.com", "password": "secret123"},
		},
		{
			name: "short password",
			body: map[string]string{"username": "player", "email": "player@example.com", "password": "12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			c, w := newTestGinContext(http.MethodPost, "/api/auth/register", tt.body)

			// Act
			handler.Register(c)

			// Assert
			assert.Equal(t, http.StatusBadRequest, w.Code, "Невалидный запрос должен отклоняться до вызова сервиса")
		})
	}
}

func TestAuthHandler_VerifyOTP_ValidationErrors(t *testing.T) {
	handler := &AuthHandler{}

	tests := []struct {
		name string
		body interface{}
	}{
		{
			name: "missing otp",
			body: map[string]string{"email": "player@example.com"},
		},
		{
			name: "otp too short",
			body: map[string]string{"email": "player@example.com", "otp": "123"},
		},
		{
			name: "otp too long",
			body: map[string]string{"email": "player@example.com", "otp": "1234567"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			c, w := newTestGinContext(http.MethodPost, "/api/auth/verify-otp", tt.body)

			// Act
			handler.VerifyOTP(c)

			// Assert
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAuthHandler_Login_ValidationErrors(t *testing.T) {
	handler := &AuthHandler{}

	tests := []struct {
		name string
		body interface{}
	}{
		{
			name: "empty body",
			body: nil,
		},
		{
			name: "missing password",
			body: map[string]string{"login": "player"},
		},
		{
			name: "missing login",
			body: map[string]string{"password": "secret123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			c, w := newTestGinContext(http.MethodPost, "/api/auth/login", tt.body)

			// Act
			handler.Login(c)

			// Assert
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	// Arrange
	jwtService := auth.NewJWTService("test-secret", 24, "mb_session", false)
	handler := NewAuthHandler(nil, jwtService)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/logout", nil)

	// Act
	handler.Logout(c)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "Logout должен отправлять куку с истекшим сроком")
	assert.Equal(t, "mb_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value, "Значение куки должно очищаться")
	assert.Negative(t, cookies[0].MaxAge, "Кука должна немедленно истекать")
}
