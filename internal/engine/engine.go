package engine

import (
	"io"
	"sync"
	"time"

	"helmet-safety-go/pkg/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// DecisionEngine превращает детекции кадра в решение о безопасности
// и ведет журнал нарушений сессии. Журнал только дополняется.
type DecisionEngine struct {
	rules  models.SafetyRules
	checks []Rule
	now    func() time.Time
	logger logrus.FieldLogger

	mu        sync.Mutex
	incidents []models.SafetyIncident
}

// Option настройка движка
type Option func(*DecisionEngine)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(e *DecisionEngine) {
		e.now = now
	}
}

// WithLogger задает логгер движка
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *DecisionEngine) {
		e.logger = logger
	}
}

// WithRule добавляет правило к правилам из конфигурации
func WithRule(rule Rule) Option {
	return func(e *DecisionEngine) {
		e.checks = append(e.checks, rule)
	}
}

// NewDecisionEngine создает движок с зафиксированными правилами
func NewDecisionEngine(rules models.SafetyRules, opts ...Option) *DecisionEngine {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	e := &DecisionEngine{
		rules:     rules,
		checks:    RulesFor(rules),
		now:       time.Now,
		logger:    silent,
		incidents: make([]models.SafetyIncident, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules возвращает правила движка
func (e *DecisionEngine) Rules() models.SafetyRules {
	return e.rules
}

// Analyze оценивает детекции одного кадра. Каждое сработавшее правило
// добавляет ровно один инцидент в журнал и в отчет.
func (e *DecisionEngine) Analyze(detections []models.Detection, frame int) models.DecisionReport {
	if e.rules.EnforceMinConfidence {
		detections = lo.Filter(detections, func(d models.Detection, _ int) bool {
			return d.Confidence >= e.rules.MinDetectionConfidence
		})
	}

	counts := CountDetections(detections)
	timestamp := e.now().Format(time.RFC3339Nano)

	report := models.DecisionReport{
		Frame:            frame,
		Timestamp:        timestamp,
		People:           counts.People,
		Helmets:          counts.Helmets,
		Vests:            counts.Vests,
		SafetyPercentage: counts.SafetyPercentage(),
		Violations:       []models.SafetyIncident{},
		SafetyStatus:     models.StatusSafe,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rule := range e.checks {
		violation, ok := rule.Evaluate(counts)
		if !ok {
			continue
		}

		incident := models.SafetyIncident{
			Timestamp:    timestamp,
			IncidentType: violation.Type,
			Severity:     violation.Severity,
			Description:  violation.Description,
			FrameNumber:  frame,
		}
		e.incidents = append(e.incidents, incident)
		report.Violations = append(report.Violations, incident)
		report.SafetyStatus = models.StatusViolation

		e.logger.WithFields(logrus.Fields{
			"frame":         frame,
			"incident_type": incident.IncidentType,
			"severity":      incident.Severity,
		}).Warn(incident.Description)
	}

	return report
}

// Incidents возвращает копию журнала в порядке добавления
func (e *DecisionEngine) Incidents() []models.SafetyIncident {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.SafetyIncident, len(e.incidents))
	copy(out, e.incidents)
	return out
}

// Statistics считает нарушения журнала по уровням серьезности
func (e *DecisionEngine) Statistics() models.Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	return StatisticsOf(e.incidents)
}

// StatisticsOf распределение произвольного журнала по серьезности
func StatisticsOf(incidents []models.SafetyIncident) models.Statistics {
	bySeverity := lo.CountValuesBy(incidents, func(i models.SafetyIncident) models.Severity {
		return i.Severity
	})

	return models.Statistics{
		TotalIncidents: len(incidents),
		HighSeverity:   bySeverity[models.SeverityHigh],
		MediumSeverity: bySeverity[models.SeverityMedium],
		LowSeverity:    bySeverity[models.SeverityLow],
	}
}
