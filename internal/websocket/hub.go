package websocket

import (
	"encoding/json"
	"sync"

	"helmet-safety-go/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ReportMessage сообщение для клиентов отображения
type ReportMessage struct {
	SessionID    string                `json:"session_id"`
	Report       models.DecisionReport `json:"report"`
	AlertMessage string                `json:"alert_message"`
	AlertColor   models.Color          `json:"alert_color"`
}

type subscription struct {
	conn      *websocket.Conn
	sessionID string
}

// Hub рассылает отчеты по кадрам подписанным клиентам сессии
type Hub struct {
	clients    map[*websocket.Conn]string
	broadcast  chan ReportMessage
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

// NewHub создает хаб, рассылка начинается после вызова Run
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan ReportMessage, 64),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обрабатывает регистрацию клиентов и рассылку до вызова Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.conn] = sub.sessionID
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Infof("Клиент подключен к сессии %s. Всего: %d", sub.sessionID, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Infof("Клиент отключен. Всего: %d", total)

		case message := <-h.broadcast:
			payload, err := json.Marshal(message)
			if err != nil {
				h.logger.Errorf("Ошибка сериализации отчета: %v", err)
				continue
			}

			h.mutex.Lock()
			for client, sessionID := range h.clients {
				if sessionID != message.SessionID {
					continue
				}
				if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.logger.Errorf("Ошибка отправки сообщения: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop останавливает Run и закрывает соединения
func (h *Hub) Stop() {
	close(h.done)
}

// Register подписывает соединение на отчеты сессии
func (h *Hub) Register(client *websocket.Conn, sessionID string) {
	select {
	case h.register <- subscription{conn: client, sessionID: sessionID}:
	case <-h.done:
		client.Close()
	}
}

// Unregister отписывает соединение и закрывает его
func (h *Hub) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast ставит отчет в очередь рассылки. Если очередь переполнена, отчет отбрасывается.
func (h *Hub) Broadcast(message ReportMessage) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warnf("Очередь рассылки переполнена, кадр %d сессии %s пропущен", message.Report.Frame, message.SessionID)
	}
}

// ClientCount количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
