package handler

import (
	"errors"
	"net/http"

	"helmet-safety-go/internal/inference"
	"helmet-safety-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MonitorHandler обрабатывает HTTP запросы сессий мониторинга
type MonitorHandler struct {
	monitorService *service.MonitorService
	logger         *logrus.Logger
}

// NewMonitorHandler создает новый экземпляр MonitorHandler
func NewMonitorHandler(monitorService *service.MonitorService, logger *logrus.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *MonitorHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/health", h.CheckHealth)
		api.POST("/sessions", h.StartSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.EndSession)
		api.POST("/sessions/:id/frames", h.AnalyzeFrame)
		api.GET("/sessions/:id/statistics", h.GetStatistics)
		api.GET("/sessions/:id/incidents", h.GetIncidents)
		api.POST("/sessions/:id/save", h.SaveSession)
	}
}

// StartSession открывает новую сессию мониторинга
func (h *MonitorHandler) StartSession(c *gin.Context) {
	var req service.StartSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Errorf("Ошибка разбора запроса: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
			return
		}
	}

	info, err := h.monitorService.StartSession(c.Request.Context(), req.Name)
	if err != nil {
		h.logger.Errorf("Ошибка создания сессии: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка создания сессии"})
		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListSessions возвращает открытые сессии
func (h *MonitorHandler) ListSessions(c *gin.Context) {
	sessions := h.monitorService.ListSessions()
	c.JSON(http.StatusOK, service.ListSessionsResponse{
		Sessions: sessions,
		Total:    len(sessions),
	})
}

// GetSession возвращает сессию по ID
func (h *MonitorHandler) GetSession(c *gin.Context) {
	info, err := h.monitorService.Session(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// AnalyzeFrame анализирует детекции одного кадра
func (h *MonitorHandler) AnalyzeFrame(c *gin.Context) {
	sessionID := c.Param("id")

	var req inference.Frame
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Ошибка разбора кадра: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
		return
	}
	if req.Frame == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Отсутствует обязательный параметр: frame"})
		return
	}

	detections, err := req.Resolve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.monitorService.AnalyzeFrame(c.Request.Context(), sessionID, *req.Frame, detections)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStatistics возвращает статистику нарушений сессии
func (h *MonitorHandler) GetStatistics(c *gin.Context) {
	stats, err := h.monitorService.Statistics(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetIncidents возвращает журнал нарушений сессии
func (h *MonitorHandler) GetIncidents(c *gin.Context) {
	sessionID := c.Param("id")

	incidents, err := h.monitorService.Incidents(sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.IncidentsResponse{
		SessionID: sessionID,
		Incidents: incidents,
		Total:     len(incidents),
	})
}

// SaveSession сохраняет журнал сессии в файл
func (h *MonitorHandler) SaveSession(c *gin.Context) {
	result, err := h.monitorService.SaveSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EndSession сохраняет журнал и закрывает сессию
func (h *MonitorHandler) EndSession(c *gin.Context) {
	summary, err := h.monitorService.EndSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CheckHealth проверяет состояние сервиса
func (h *MonitorHandler) CheckHealth(c *gin.Context) {
	health := h.monitorService.CheckHealth()

	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

func (h *MonitorHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Сессия не найдена"})
		return
	}

	h.logger.Errorf("Ошибка обработки запроса %s: %v", c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
}
