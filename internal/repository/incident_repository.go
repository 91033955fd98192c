package repository

import (
	"errors"
	"fmt"
	"time"

	"helmet-safety-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("record not found")

// IncidentRepository интерфейс для работы с сессиями и журналом нарушений
type IncidentRepository interface {
	CreateSession(session *model.Session) error
	GetSession(id string) (*model.Session, error)
	AppendIncidents(sessionID string, incidents []model.Incident) error
	ListIncidents(sessionID string) ([]*model.Incident, error)
	FinishSession(sessionID string, summary SessionSummary) error
}

// SessionSummary итоговые значения сессии, записываемые при ее завершении
type SessionSummary struct {
	FramesAnalyzed  int
	ViolationFrames int
	TotalIncidents  int
	LogPath         string
	EndedAt         time.Time
}

// incidentRepository реализация IncidentRepository
type incidentRepository struct {
	db *gorm.DB
}

// NewIncidentRepository создает новый instance IncidentRepository
func NewIncidentRepository(db *gorm.DB) IncidentRepository {
	return &incidentRepository{
		db: db,
	}
}

// CreateSession создает запись о сессии
func (r *incidentRepository) CreateSession(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession получает сессию по ID вместе с нарушениями
func (r *incidentRepository) GetSession(id string) (*model.Session, error) {
	var session model.Session
	err := r.db.Preload("Incidents", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// AppendIncidents добавляет нарушения одного кадра в журнал
func (r *incidentRepository) AppendIncidents(sessionID string, incidents []model.Incident) error {
	if len(incidents) == 0 {
		return nil
	}

	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	for i := range incidents {
		incidents[i].ID = 0 // Обнуляем ID для auto-increment
		incidents[i].SessionID = sessionID

		if err := tx.Create(&incidents[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create incident %d: %w", i, err)
		}
	}

	if err := tx.Model(&model.Session{}).Where("id = ?", sessionID).
		UpdateColumn("total_incidents", gorm.Expr("total_incidents + ?", len(incidents))).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update session counters: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListIncidents возвращает журнал сессии в порядке добавления
func (r *incidentRepository) ListIncidents(sessionID string) ([]*model.Incident, error) {
	var incidents []*model.Incident

	err := r.db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}

	return incidents, nil
}

// FinishSession сохраняет итоги сессии
func (r *incidentRepository) FinishSession(sessionID string, summary SessionSummary) error {
	endedAt := summary.EndedAt
	result := r.db.Model(&model.Session{}).Where("id = ?", sessionID).Updates(map[string]any{
		"frames_analyzed":  summary.FramesAnalyzed,
		"violation_frames": summary.ViolationFrames,
		"total_incidents":  summary.TotalIncidents,
		"log_path":         summary.LogPath,
		"ended_at":         &endedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to finish session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session with id %s: %w", sessionID, ErrNotFound)
	}

	return nil
}
