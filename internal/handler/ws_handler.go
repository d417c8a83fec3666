package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/maxbattle-api/internal/websocket"
	"github.com/yourusername/maxbattle-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения для push-уведомлений
type WSHandler struct {
	hub        *websocket.Hub
	jwtService *auth.JWTService
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(hub *websocket.Hub, jwtService *auth.JWTService) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtService: jwtService,
	}
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Пустой Origin - не браузерный клиент (мобильное приложение, curl и т.д.)
		if origin == "" {
			return true
		}

		// Список разрешенных origin (синхронизирован с CORS в main.go)
		allowedOrigins := []string{
			"https://maxbattle.vercel.app",
			"http://localhost:5173",
			"http://localhost:3000",
		}

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
		return false
	},
	EnableCompression: true,
}

// HandleConnection апгрейдит соединение и подключает клиента к hub.
// Токен берётся из сессионной куки или query-параметра token
// (браузерный WebSocket API не умеет выставлять заголовки).
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token, err := c.Cookie(h.jwtService.CookieName())
	if err != nil || token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения для пользователя ID=%d: %v", claims.UserID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.UserID)
	go client.Serve()
}
