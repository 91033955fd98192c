package metrics

import (
	"net/http"

	"helmet-safety-go/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics метрики мониторинга безопасности
type Metrics struct {
	registry *prometheus.Registry

	framesAnalyzed   *prometheus.CounterVec
	incidents        *prometheus.CounterVec
	safetyPercentage *prometheus.GaugeVec
	activeSessions   prometheus.Gauge
}

// New регистрирует метрики в собственном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helmet_safety",
			Name:      "frames_analyzed_total",
			Help:      "Number of frames evaluated by the decision engine.",
		}, []string{"status"}),
		incidents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helmet_safety",
			Name:      "incidents_total",
			Help:      "Number of safety incidents recorded.",
		}, []string{"incident_type", "severity"}),
		safetyPercentage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "helmet_safety",
			Name:      "safety_percentage",
			Help:      "Safety percentage of the last analysed frame per session.",
		}, []string{"session_id"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "helmet_safety",
			Name:      "active_sessions",
			Help:      "Number of open monitoring sessions.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesAnalyzed,
		m.incidents,
		m.safetyPercentage,
		m.activeSessions,
	)
	return m
}

// ObserveReport учитывает отчет по кадру
func (m *Metrics) ObserveReport(sessionID string, report models.DecisionReport) {
	m.framesAnalyzed.WithLabelValues(string(report.SafetyStatus)).Inc()
	m.safetyPercentage.WithLabelValues(sessionID).Set(report.SafetyPercentage)

	for _, incident := range report.Violations {
		m.incidents.WithLabelValues(string(incident.IncidentType), string(incident.Severity)).Inc()
	}
}

// SessionStarted увеличивает число активных сессий
func (m *Metrics) SessionStarted() {
	m.activeSessions.Inc()
}

// SessionEnded уменьшает число активных сессий и убирает метку сессии
func (m *Metrics) SessionEnded(sessionID string) {
	m.activeSessions.Dec()
	m.safetyPercentage.DeleteLabelValues(sessionID)
}

// Registry реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
