package handler

import (
	"net/http"

	"helmet-safety-go/internal/service"
	"helmet-safety-go/internal/websocket"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveHandler отдает отчеты по кадрам через websocket
type LiveHandler struct {
	monitorService *service.MonitorService
	hub            *websocket.Hub
	logger         *logrus.Logger
}

// NewLiveHandler создает обработчик живых отчетов
func NewLiveHandler(monitorService *service.MonitorService, hub *websocket.Hub, logger *logrus.Logger) *LiveHandler {
	return &LiveHandler{
		monitorService: monitorService,
		hub:            hub,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует websocket маршрут
func (h *LiveHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/v1/sessions/:id/live", h.Subscribe)
}

// Subscribe подписывает клиента на отчеты сессии
func (h *LiveHandler) Subscribe(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.monitorService.Session(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Сессия не найдена"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Ошибка websocket upgrade: %v", err)
		return
	}

	h.hub.Register(conn, sessionID)
	defer h.hub.Unregister(conn)

	// Клиент только слушает; чтение нужно, чтобы заметить закрытие соединения
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
