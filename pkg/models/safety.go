package models

import "fmt"

// ObjectType класс объекта, найденного детектором
type ObjectType string

const (
	ObjectPerson ObjectType = "person"
	ObjectHelmet ObjectType = "helmet"
	ObjectVest   ObjectType = "vest"
)

// IncidentType тип нарушения техники безопасности
type IncidentType string

const (
	IncidentNoHelmet IncidentType = "no_helmet"
	IncidentNoVest   IncidentType = "no_vest"
)

// Severity уровень серьезности нарушения
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SafetyStatus итоговый статус кадра
type SafetyStatus string

const (
	StatusSafe      SafetyStatus = "SAFE"
	StatusViolation SafetyStatus = "VIOLATION"
)

// BoundingBox рамка объекта (center-x, center-y, width, height) в пикселях
type BoundingBox [4]float64

// Detection один объект, найденный внешней моделью на кадре
type Detection struct {
	ObjectType  ObjectType  `json:"object_type"`  // Класс объекта
	Confidence  float64     `json:"confidence"`   // Уверенность модели от 0 до 1
	BoundingBox BoundingBox `json:"bounding_box"` // Рамка, движком не интерпретируется
}

// Validate проверяет, что уверенность лежит в диапазоне [0, 1]
func (d Detection) Validate() error {
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v for %q is outside [0, 1]", d.Confidence, d.ObjectType)
	}
	return nil
}

// SafetyIncident зафиксированное нарушение
type SafetyIncident struct {
	Timestamp    string       `json:"timestamp"`     // Время обнаружения в ISO-8601
	IncidentType IncidentType `json:"incident_type"` // Тип нарушения
	Severity     Severity     `json:"severity"`      // Серьезность
	Description  string       `json:"description"`   // Описание с количеством нарушителей
	FrameNumber  int          `json:"frame_number"`  // Номер кадра от вызывающей стороны
}

// DecisionReport решение движка по одному кадру
type DecisionReport struct {
	Frame            int              `json:"frame"`
	Timestamp        string           `json:"timestamp"`
	People           int              `json:"people"`
	Helmets          int              `json:"helmets"`
	Vests            int              `json:"vests"`
	SafetyPercentage float64          `json:"safety_percentage"`
	Violations       []SafetyIncident `json:"violations"`
	SafetyStatus     SafetyStatus     `json:"safety_status"`
}

// MissingHelmets количество людей без касок
func (r DecisionReport) MissingHelmets() int {
	if r.People > r.Helmets {
		return r.People - r.Helmets
	}
	return 0
}

// MissingVests количество людей без жилетов
func (r DecisionReport) MissingVests() int {
	if r.People > r.Vests {
		return r.People - r.Vests
	}
	return 0
}

// SafetyRules правила безопасности, фиксируются при создании движка
type SafetyRules struct {
	RequireHelmet          bool    `json:"require_helmet" yaml:"require_helmet"`
	RequireVest            bool    `json:"require_vest" yaml:"require_vest"`
	MinDetectionConfidence float64 `json:"min_detection_confidence" yaml:"min_detection_confidence"`
	EnforceMinConfidence   bool    `json:"enforce_min_confidence" yaml:"enforce_min_confidence"`
}

// DefaultSafetyRules правила по умолчанию: каска обязательна, жилет нет
func DefaultSafetyRules() SafetyRules {
	return SafetyRules{
		RequireHelmet:          true,
		RequireVest:            false,
		MinDetectionConfidence: 0.5,
	}
}

// Statistics распределение нарушений сессии по серьезности
type Statistics struct {
	TotalIncidents int `json:"total_incidents"`
	HighSeverity   int `json:"high_severity"`
	MediumSeverity int `json:"medium_severity"`
	LowSeverity    int `json:"low_severity"`
}

// Color тройка каналов для подсветки сообщения
type Color [3]uint8

var (
	ColorGreen = Color{0, 255, 0}
	ColorAmber = Color{0, 165, 255}
	ColorRed   = Color{0, 0, 255}
)

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status         string `json:"status"`          // Статус сервиса (healthy/degraded)
	Database       string `json:"database"`        // Состояние базы данных
	ActiveSessions int    `json:"active_sessions"` // Количество активных сессий
	Version        string `json:"version"`         // Версия сервиса
}

// IncidentEvent сообщение о нарушении для внешних подписчиков
type IncidentEvent struct {
	SessionID string         `json:"session_id"`
	Incident  SafetyIncident `json:"incident"`
}
