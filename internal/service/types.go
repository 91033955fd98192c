package service

import (
	"time"

	"helmet-safety-go/pkg/models"
)

// SessionInfo информация о сессии мониторинга
type SessionInfo struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Rules           models.SafetyRules `json:"rules"`
	StartedAt       time.Time          `json:"started_at"`
	EndedAt         *time.Time         `json:"ended_at,omitempty"` // Только для завершенных сессий из БД
	FramesAnalyzed  int                `json:"frames_analyzed"`
	ViolationFrames int                `json:"violation_frames"`
	TotalIncidents  int                `json:"total_incidents"`
}

// FrameResult результат анализа одного кадра
type FrameResult struct {
	SessionID       string                `json:"session_id"`
	Report          models.DecisionReport `json:"report"`
	AlertMessage    string                `json:"alert_message"`
	AlertColor      models.Color          `json:"alert_color"`
	FramesAnalyzed  int                   `json:"frames_analyzed"`
	ViolationFrames int                   `json:"violation_frames"`
}

// SaveResult результат сохранения журнала
type SaveResult struct {
	SessionID  string `json:"session_id"`
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// SessionSummary итог завершенной сессии
type SessionSummary struct {
	Session    SessionInfo       `json:"session"`
	Statistics models.Statistics `json:"statistics"`
	Save       SaveResult        `json:"save"`
	EndedAt    time.Time         `json:"ended_at"`
}

// StartSessionRequest запрос на создание сессии
type StartSessionRequest struct {
	Name string `json:"name"`
}

// ListSessionsResponse ответ со списком сессий
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}

// IncidentsResponse ответ с журналом нарушений сессии
type IncidentsResponse struct {
	SessionID string                  `json:"session_id"`
	Incidents []models.SafetyIncident `json:"incidents"`
	Total     int                     `json:"total"`
}
