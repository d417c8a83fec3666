package websocket

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения. Клиент ничего содержательного
	// не шлёт, канал используется только сервером.
	maxMessageSize = 512

	// Размер буфера канала исходящих сообщений
	clientBufferSize = 64
)

// Client является посредником между WebSocket соединением и hub
type Client struct {
	userID       uint
	connectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool
}

// NewClient создает нового клиента и регистрирует его в hub
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	client := &Client{
		userID:       userID,
		connectionID: uuid.New().String(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, clientBufferSize),
	}
	hub.register <- client
	return client
}

// Serve запускает насосы чтения и записи. Блокируется до разрыва соединения.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

// trySend кладёт сообщение в буфер клиента без блокировки.
// Переполненный буфер означает мёртвое или очень медленное соединение -
// сообщение отбрасывается, readPump закроет соединение по тайм-ауту.
func (c *Client) trySend(payload []byte) {
	if c.sendClosed.Load() {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("[WSClient] Буфер соединения %s (user=%d) переполнен, сообщение отброшено",
			c.connectionID, c.userID)
	}
}

func (c *Client) closeSend() {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
	}
}

// readPump читает сообщения из соединения. Входящие данные игнорируются,
// цикл нужен для обработки pong и обнаружения разрыва.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WSClient] Неожиданное закрытие соединения %s (user=%d): %v",
					c.connectionID, c.userID, err)
			}
			return
		}
	}
}

// writePump пишет сообщения из канала send в соединение и шлёт ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
