package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"helmet-safety-go/internal/engine"
	"helmet-safety-go/internal/model"
	"helmet-safety-go/internal/repository"
	"helmet-safety-go/internal/websocket"
	"helmet-safety-go/pkg/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ErrSessionNotFound сессия с указанным ID не открыта
var ErrSessionNotFound = errors.New("session not found")

// LogFileName имя файла журнала внутри папки сессии
const LogFileName = "violations.json"

// IncidentPublisher отправляет новые нарушения внешним подписчикам
type IncidentPublisher interface {
	PublishIncidents(sessionID string, incidents []models.SafetyIncident) error
}

// LogArchiver копирует сохраненный журнал во внешнее хранилище
type LogArchiver interface {
	ArchiveLog(ctx context.Context, sessionID, filePath string) (string, error)
}

// ReportBroadcaster рассылает отчеты клиентам отображения
type ReportBroadcaster interface {
	Broadcast(message websocket.ReportMessage)
}

// MetricsRecorder учитывает отчеты и сессии в метриках
type MetricsRecorder interface {
	ObserveReport(sessionID string, report models.DecisionReport)
	SessionStarted()
	SessionEnded(sessionID string)
}

// Dependencies необязательные зависимости сервиса. Nil отключает соответствующую функцию.
type Dependencies struct {
	Repository  repository.IncidentRepository
	Publisher   IncidentPublisher
	Archiver    LogArchiver
	Broadcaster ReportBroadcaster
	Metrics     MetricsRecorder
	HealthCheck func() error
}

type session struct {
	id        string
	name      string
	engine    *engine.DecisionEngine
	startedAt time.Time

	// mu сериализует кадры сессии с ее закрытием
	mu              sync.Mutex
	closed          bool
	framesAnalyzed  int
	violationFrames int

	// inflight кадры, принятые до закрытия, но еще не разосланные
	inflight sync.WaitGroup
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionInfo{
		ID:              s.id,
		Name:            s.name,
		Rules:           s.engine.Rules(),
		StartedAt:       s.startedAt,
		FramesAnalyzed:  s.framesAnalyzed,
		ViolationFrames: s.violationFrames,
		TotalIncidents:  s.engine.Statistics().TotalIncidents,
	}
}

// MonitorService сервис сессий мониторинга. У каждой сессии свой движок решений.
type MonitorService struct {
	rules         models.SafetyRules
	violationsDir string
	deps          Dependencies
	logger        *logrus.Logger
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewMonitorService создает новый сервис мониторинга
func NewMonitorService(rules models.SafetyRules, violationsDir string, deps Dependencies, logger *logrus.Logger) *MonitorService {
	return &MonitorService{
		rules:         rules,
		violationsDir: violationsDir,
		deps:          deps,
		logger:        logger,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}
}

// StartSession открывает новую сессию мониторинга
func (s *MonitorService) StartSession(ctx context.Context, name string) (*SessionInfo, error) {
	id := uuid.New().String()
	if name == "" {
		name = fmt.Sprintf("Session %s", id[:8])
	}

	sess := &session{
		id:        id,
		name:      name,
		startedAt: s.now(),
		engine: engine.NewDecisionEngine(s.rules,
			engine.WithClock(s.now),
			engine.WithLogger(s.logger.WithField("session_id", id)),
		),
	}

	if s.deps.Repository != nil {
		err := s.deps.Repository.CreateSession(&model.Session{
			ID:            id,
			Name:          name,
			RequireHelmet: s.rules.RequireHelmet,
			RequireVest:   s.rules.RequireVest,
			StartedAt:     sess.startedAt,
		})
		if err != nil {
			s.logger.Errorf("Ошибка сохранения сессии в БД: %v", err)
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionStarted()
	}

	s.logger.Infof("Открыта сессия %s (%s)", id, name)
	info := sess.info()
	return &info, nil
}

// AnalyzeFrame передает детекции кадра движку сессии и рассылает результат
func (s *MonitorService) AnalyzeFrame(ctx context.Context, sessionID string, frame int, detections []models.Detection) (*FrameResult, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	report := sess.engine.Analyze(detections, frame)
	sess.framesAnalyzed++
	if report.SafetyStatus == models.StatusViolation {
		sess.violationFrames++
	}
	result := &FrameResult{
		SessionID:       sessionID,
		Report:          report,
		AlertMessage:    engine.AlertMessage(report),
		AlertColor:      engine.AlertColor(report),
		FramesAnalyzed:  sess.framesAnalyzed,
		ViolationFrames: sess.violationFrames,
	}
	sess.inflight.Add(1)
	sess.mu.Unlock()
	defer sess.inflight.Done()

	s.fanOut(ctx, sessionID, result)
	return result, nil
}

// fanOut журнал в памяти остается основным, ошибки внешних получателей только логируются
func (s *MonitorService) fanOut(ctx context.Context, sessionID string, result *FrameResult) {
	incidents := result.Report.Violations

	if len(incidents) > 0 && s.deps.Repository != nil {
		rows := lo.Map(incidents, func(i models.SafetyIncident, _ int) model.Incident {
			return model.Incident{
				SessionID:    sessionID,
				Timestamp:    i.Timestamp,
				IncidentType: string(i.IncidentType),
				Severity:     string(i.Severity),
				Description:  i.Description,
				FrameNumber:  i.FrameNumber,
			}
		})
		if err := s.deps.Repository.AppendIncidents(sessionID, rows); err != nil {
			s.logger.Errorf("Ошибка записи нарушений сессии %s в БД: %v", sessionID, err)
		}
	}

	if len(incidents) > 0 && s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishIncidents(sessionID, incidents); err != nil {
			s.logger.Errorf("Ошибка публикации нарушений сессии %s: %v", sessionID, err)
		}
	}

	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.Broadcast(websocket.ReportMessage{
			SessionID:    sessionID,
			Report:       result.Report,
			AlertMessage: result.AlertMessage,
			AlertColor:   result.AlertColor,
		})
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveReport(sessionID, result.Report)
	}
}

// Session возвращает информацию о сессии. Завершенные сессии читаются из БД.
func (s *MonitorService) Session(sessionID string) (*SessionInfo, error) {
	sess, err := s.get(sessionID)
	if err == nil {
		info := sess.info()
		return &info, nil
	}

	stored, err := s.storedSession(sessionID, err)
	if err != nil {
		return nil, err
	}
	return sessionInfoFromModel(stored), nil
}

// ListSessions возвращает открытые сессии в порядке открытия
func (s *MonitorService) ListSessions() []SessionInfo {
	s.mu.RLock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.info())
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// ActiveSessions количество открытых сессий
func (s *MonitorService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Statistics статистика нарушений сессии
func (s *MonitorService) Statistics(sessionID string) (models.Statistics, error) {
	sess, err := s.get(sessionID)
	if err == nil {
		return sess.engine.Statistics(), nil
	}

	incidents, err := s.storedIncidents(sessionID, err)
	if err != nil {
		return models.Statistics{}, err
	}
	return engine.StatisticsOf(incidents), nil
}

// Incidents журнал нарушений сессии
func (s *MonitorService) Incidents(sessionID string) ([]models.SafetyIncident, error) {
	sess, err := s.get(sessionID)
	if err == nil {
		return sess.engine.Incidents(), nil
	}
	return s.storedIncidents(sessionID, err)
}

// storedSession ищет сессию в зеркале журнала. Без БД возвращается исходная ошибка.
func (s *MonitorService) storedSession(sessionID string, notOpen error) (*model.Session, error) {
	if s.deps.Repository == nil {
		return nil, notOpen
	}

	stored, err := s.deps.Repository.GetSession(sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notOpen
	}
	if err != nil {
		s.logger.Errorf("Ошибка чтения сессии %s из БД: %v", sessionID, err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return stored, nil
}

func (s *MonitorService) storedIncidents(sessionID string, notOpen error) ([]models.SafetyIncident, error) {
	if _, err := s.storedSession(sessionID, notOpen); err != nil {
		return nil, err
	}

	rows, err := s.deps.Repository.ListIncidents(sessionID)
	if err != nil {
		s.logger.Errorf("Ошибка чтения журнала сессии %s из БД: %v", sessionID, err)
		return nil, fmt.Errorf("failed to load incidents: %w", err)
	}

	return lo.Map(rows, func(row *model.Incident, _ int) models.SafetyIncident {
		return models.SafetyIncident{
			Timestamp:    row.Timestamp,
			IncidentType: models.IncidentType(row.IncidentType),
			Severity:     models.Severity(row.Severity),
			Description:  row.Description,
			FrameNumber:  row.FrameNumber,
		}
	}), nil
}

func sessionInfoFromModel(stored *model.Session) *SessionInfo {
	return &SessionInfo{
		ID:   stored.ID,
		Name: stored.Name,
		Rules: models.SafetyRules{
			RequireHelmet: stored.RequireHelmet,
			RequireVest:   stored.RequireVest,
		},
		StartedAt:       stored.StartedAt,
		EndedAt:         stored.EndedAt,
		FramesAnalyzed:  stored.FramesAnalyzed,
		ViolationFrames: stored.ViolationFrames,
		TotalIncidents:  stored.TotalIncidents,
	}
}

// SaveSession сохраняет журнал сессии в файл и, если настроено, архивирует его
func (s *MonitorService) SaveSession(ctx context.Context, sessionID string) (*SaveResult, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, sess)
}

func (s *MonitorService) save(ctx context.Context, sess *session) (*SaveResult, error) {
	dir := filepath.Join(s.violationsDir, sess.id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Errorf("Ошибка создания директории %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	path := filepath.Join(dir, LogFileName)
	count, err := sess.engine.Save(path)
	if err != nil {
		s.logger.Errorf("Ошибка сохранения журнала сессии %s: %v", sess.id, err)
		return nil, fmt.Errorf("failed to save incidents: %w", err)
	}

	result := &SaveResult{
		SessionID: sess.id,
		Path:      path,
		Count:     count,
	}

	if s.deps.Archiver != nil {
		url, err := s.deps.Archiver.ArchiveLog(ctx, sess.id, path)
		if err != nil {
			s.logger.Warnf("Не удалось архивировать журнал сессии %s: %v", sess.id, err)
		} else {
			result.ArchiveURL = url
		}
	}

	s.logger.Infof("Журнал сессии %s сохранен: %s (%d нарушений)", sess.id, path, count)
	return result, nil
}

// EndSession сохраняет журнал и закрывает сессию
func (s *MonitorService) EndSession(ctx context.Context, sessionID string) (*SessionSummary, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	// После закрытия новые кадры не принимаются, журнал больше не растет
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.closed = true
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	sess.inflight.Wait()

	saved, err := s.save(ctx, sess)
	if err != nil {
		// Сессия возвращается, чтобы сохранение можно было повторить
		sess.mu.Lock()
		sess.closed = false
		sess.mu.Unlock()

		s.mu.Lock()
		s.sessions[sessionID] = sess
		s.mu.Unlock()
		return nil, err
	}

	info := sess.info()
	summary := &SessionSummary{
		Session:    info,
		Statistics: sess.engine.Statistics(),
		Save:       *saved,
		EndedAt:    s.now(),
	}

	if s.deps.Repository != nil {
		err := s.deps.Repository.FinishSession(sessionID, repository.SessionSummary{
			FramesAnalyzed:  info.FramesAnalyzed,
			ViolationFrames: info.ViolationFrames,
			TotalIncidents:  info.TotalIncidents,
			LogPath:         saved.Path,
			EndedAt:         summary.EndedAt,
		})
		if err != nil {
			s.logger.Errorf("Ошибка записи итогов сессии %s в БД: %v", sessionID, err)
		}
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionEnded(sessionID)
	}

	s.logger.Infof("Сессия %s завершена: кадров %d, с нарушениями %d, всего нарушений %d",
		sessionID, info.FramesAnalyzed, info.ViolationFrames, info.TotalIncidents)
	return summary, nil
}

// CheckHealth проверяет состояние сервиса и его зависимостей
func (s *MonitorService) CheckHealth() *models.HealthResponse {
	health := &models.HealthResponse{
		Status:         "healthy",
		Database:       "disabled",
		ActiveSessions: s.ActiveSessions(),
		Version:        "1.0.0",
	}

	if s.deps.HealthCheck != nil {
		if err := s.deps.HealthCheck(); err != nil {
			s.logger.Errorf("База данных недоступна: %v", err)
			health.Status = "degraded"
			health.Database = "unavailable"
		} else {
			health.Database = "ok"
		}
	}

	return health
}

func (s *MonitorService) get(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}
