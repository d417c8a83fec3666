package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Типы событий, отправляемых клиентам
const (
	EventNotification = "notification"
	EventBalance      = "balance:update"
	EventTournament   = "tournament:update"
)

// Event - сообщение, отправляемое клиенту через WebSocket
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub ведёт учёт активных соединений и маршрутизирует события пользователям.
// Один пользователь может иметь несколько соединений (несколько вкладок).
type Hub struct {
	mu sync.RWMutex

	// clients: userID -> множество активных соединений
	clients map[uint]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub создает новый hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обрабатывает регистрацию и отключение клиентов.
// Запускается в отдельной горутине из main.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]struct{})
			}
			h.clients[client.userID][client] = struct{}{}
			count := len(h.clients[client.userID])
			h.mu.Unlock()
			log.Printf("[WSHub] Пользователь ID=%d подключен (%d соединений)", client.userID, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.userID]; ok {
				if _, exists := conns[client]; exists {
					delete(conns, client)
					client.closeSend()
					if len(conns) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, conns := range h.clients {
				for client := range conns {
					client.closeSend()
				}
			}
			h.clients = make(map[uint]map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Close останавливает hub и закрывает все соединения
func (h *Hub) Close() {
	close(h.done)
}

// SendToUser отправляет событие во все соединения пользователя.
// Если пользователь не подключен, событие молча отбрасывается -
// оно уже сохранено в таблице уведомлений.
func (h *Hub) SendToUser(userID uint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WSHub] Ошибка сериализации события '%s': %v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		client.trySend(payload)
	}
}

// Broadcast отправляет событие всем подключенным пользователям
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WSHub] Ошибка сериализации события '%s': %v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.clients {
		for client := range conns {
			client.trySend(payload)
		}
	}
}

// ConnectedUsers возвращает число пользователей с активными соединениями
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
