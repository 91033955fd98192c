package model

import (
	"time"

	"gorm.io/gorm"
)

// Session представляет сессию мониторинга в базе данных
type Session struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name            string     `gorm:"type:varchar(255);not null" json:"name"`
	RequireHelmet   bool       `gorm:"not null" json:"require_helmet"`
	RequireVest     bool       `gorm:"not null" json:"require_vest"`
	FramesAnalyzed  int        `gorm:"not null;default:0" json:"frames_analyzed"`
	ViolationFrames int        `gorm:"not null;default:0" json:"violation_frames"`
	TotalIncidents  int        `gorm:"not null;default:0" json:"total_incidents"`
	LogPath         string     `gorm:"type:varchar(500)" json:"log_path"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с нарушениями
	Incidents []Incident `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"incidents"`
}

// Incident одна запись журнала нарушений. Записи только добавляются.
type Incident struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    string `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Timestamp    string `gorm:"type:varchar(64);not null" json:"timestamp"`
	IncidentType string `gorm:"type:varchar(32);not null;index" json:"incident_type"`
	Severity     string `gorm:"type:varchar(16);not null;index" json:"severity"`
	Description  string `gorm:"type:text;not null" json:"description"`
	FrameNumber  int    `gorm:"not null" json:"frame_number"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName указывает имя таблицы для Session
func (Session) TableName() string {
	return "sessions"
}

// TableName указывает имя таблицы для Incident
func (Incident) TableName() string {
	return "incidents"
}
