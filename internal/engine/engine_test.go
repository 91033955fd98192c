package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"helmet-safety-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

func newTestEngine(opts ...Option) *DecisionEngine {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewDecisionEngine(models.DefaultSafetyRules(), opts...)
}

func person(conf float64) models.Detection {
	return models.Detection{ObjectType: models.ObjectPerson, Confidence: conf, BoundingBox: models.BoundingBox{100, 50, 50, 100}}
}

func helmet(conf float64) models.Detection {
	return models.Detection{ObjectType: models.ObjectHelmet, Confidence: conf, BoundingBox: models.BoundingBox{110, 40, 30, 25}}
}

func vest(conf float64) models.Detection {
	return models.Detection{ObjectType: models.ObjectVest, Confidence: conf}
}

func TestAnalyze_SinglePersonWithoutHelmet(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze([]models.Detection{person(0.95)}, 1)

	assert.Equal(t, 1, report.Frame)
	assert.Equal(t, 1, report.People)
	assert.Equal(t, 0, report.Helmets)
	assert.Equal(t, models.StatusViolation, report.SafetyStatus)
	assert.Equal(t, 0.0, report.SafetyPercentage)
	require.Len(t, report.Violations, 1)

	incident := report.Violations[0]
	assert.Equal(t, models.IncidentNoHelmet, incident.IncidentType)
	assert.Equal(t, models.SeverityMedium, incident.Severity)
	assert.Equal(t, "1 person/people without helmet", incident.Description)
	assert.Equal(t, 1, incident.FrameNumber)
	assert.Equal(t, fixedNow.Format(time.RFC3339Nano), incident.Timestamp)
	assert.Equal(t, []models.SafetyIncident{incident}, e.Incidents())
}

func TestAnalyze_PersonWithHelmetIsSafe(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze([]models.Detection{person(0.95), helmet(0.92)}, 1)

	assert.Equal(t, models.StatusSafe, report.SafetyStatus)
	assert.Equal(t, 100.0, report.SafetyPercentage)
	assert.Empty(t, report.Violations)
	assert.NotNil(t, report.Violations)
	assert.Empty(t, e.Incidents())
}

func TestAnalyze_ThreePeopleWithoutHelmetsIsHigh(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze([]models.Detection{person(0.9), person(0.8), person(0.7)}, 50)

	require.Len(t, report.Violations, 1)
	assert.Equal(t, models.SeverityHigh, report.Violations[0].Severity)
	assert.Equal(t, 50, report.Violations[0].FrameNumber)
	assert.Contains(t, report.Violations[0].Description, "3")
	assert.Equal(t, 0.0, report.SafetyPercentage)
}

func TestAnalyze_EmptyFrame(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze(nil, 5)

	assert.Equal(t, 5, report.Frame)
	assert.Equal(t, 0, report.People)
	assert.Equal(t, 0, report.Helmets)
	assert.Equal(t, models.StatusSafe, report.SafetyStatus)
	assert.Equal(t, 100.0, report.SafetyPercentage)
	assert.Empty(t, report.Violations)
}

func TestAnalyze_SeverityTieBreak(t *testing.T) {
	tests := []struct {
		people, helmets int
		want            models.Severity
		violation       bool
	}{
		{people: 1, helmets: 0, want: models.SeverityMedium, violation: true},
		{people: 2, helmets: 0, want: models.SeverityMedium, violation: true},
		{people: 5, helmets: 3, want: models.SeverityMedium, violation: true},
		{people: 3, helmets: 0, want: models.SeverityHigh, violation: true},
		{people: 10, helmets: 2, want: models.SeverityHigh, violation: true},
		{people: 2, helmets: 2},
		{people: 1, helmets: 4},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.people)+"-"+strconv.Itoa(tt.helmets), func(t *testing.T) {
			var detections []models.Detection
			for i := 0; i < tt.people; i++ {
				detections = append(detections, person(0.9))
			}
			for i := 0; i < tt.helmets; i++ {
				detections = append(detections, helmet(0.9))
			}

			e := newTestEngine()
			report := e.Analyze(detections, 7)

			if !tt.violation {
				assert.Equal(t, models.StatusSafe, report.SafetyStatus)
				assert.Empty(t, e.Incidents())
				return
			}
			require.Len(t, report.Violations, 1)
			assert.Equal(t, tt.want, report.Violations[0].Severity)
			assert.True(t, strings.HasPrefix(report.Violations[0].Description, strconv.Itoa(tt.people-tt.helmets)+" "))
		})
	}
}

func TestAnalyze_UnknownLabelsIgnored(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze([]models.Detection{
		person(0.9),
		helmet(0.9),
		{ObjectType: "dog", Confidence: 0.99},
		{ObjectType: "", Confidence: 0.4},
	}, 3)

	assert.Equal(t, 1, report.People)
	assert.Equal(t, 1, report.Helmets)
	assert.Equal(t, models.StatusSafe, report.SafetyStatus)
}

func TestAnalyze_PartialCoverage(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze([]models.Detection{person(0.9), person(0.9), person(0.9), person(0.9), helmet(0.9), helmet(0.9), helmet(0.9)}, 9)

	assert.InDelta(t, 75.0, report.SafetyPercentage, 1e-9)
	assert.Equal(t, models.StatusViolation, report.SafetyStatus)
}

func TestAnalyze_RepeatedInputAppendsEachTime(t *testing.T) {
	e := newTestEngine()
	detections := []models.Detection{person(0.9), person(0.9), helmet(0.9)}

	first := e.Analyze(detections, 12)
	second := e.Analyze(detections, 12)

	assert.Equal(t, first, second)
	assert.Len(t, e.Incidents(), 2)
}

func TestAnalyze_HelmetRuleDisabled(t *testing.T) {
	rules := models.DefaultSafetyRules()
	rules.RequireHelmet = false
	e := NewDecisionEngine(rules)

	report := e.Analyze([]models.Detection{person(0.9), person(0.9)}, 1)

	assert.Equal(t, models.StatusSafe, report.SafetyStatus)
	assert.Equal(t, 0.0, report.SafetyPercentage)
	assert.Empty(t, e.Incidents())
}

func TestAnalyze_VestRule(t *testing.T) {
	rules := models.DefaultSafetyRules()
	rules.RequireVest = true
	e := NewDecisionEngine(rules)

	report := e.Analyze([]models.Detection{person(0.9), person(0.9), helmet(0.9), helmet(0.9), vest(0.9)}, 4)

	require.Len(t, report.Violations, 1)
	assert.Equal(t, models.IncidentNoVest, report.Violations[0].IncidentType)
	assert.Equal(t, "1 person/people without vest", report.Violations[0].Description)
	assert.Equal(t, models.StatusViolation, report.SafetyStatus)
	assert.Equal(t, 100.0, report.SafetyPercentage)

	report = e.Analyze([]models.Detection{person(0.9)}, 5)
	require.Len(t, report.Violations, 2)
	assert.Equal(t, models.IncidentNoHelmet, report.Violations[0].IncidentType)
	assert.Equal(t, models.IncidentNoVest, report.Violations[1].IncidentType)
	assert.Len(t, e.Incidents(), 3)
}

func TestAnalyze_MinConfidenceEnforced(t *testing.T) {
	rules := models.DefaultSafetyRules()
	rules.EnforceMinConfidence = true
	e := NewDecisionEngine(rules)

	report := e.Analyze([]models.Detection{person(0.9), person(0.3), helmet(0.5), helmet(0.2)}, 1)

	assert.Equal(t, 1, report.People)
	assert.Equal(t, 1, report.Helmets)
	assert.Equal(t, models.StatusSafe, report.SafetyStatus)
}

func TestAnalyze_MinConfidenceNotEnforcedByDefault(t *testing.T) {
	e := newTestEngine()

	report := e.Analyze([]models.Detection{person(0.1), helmet(0.05)}, 1)

	assert.Equal(t, 1, report.People)
	assert.Equal(t, 1, report.Helmets)
}

type crowdRule struct{}

func (crowdRule) Type() models.IncidentType { return "crowding" }

func (crowdRule) Evaluate(c Counts) (Violation, bool) {
	if c.People < 4 {
		return Violation{}, false
	}
	return Violation{Type: "crowding", Severity: models.SeverityLow, Description: "too many people"}, true
}

func TestStatistics(t *testing.T) {
	e := newTestEngine(WithRule(crowdRule{}))

	e.Analyze([]models.Detection{person(0.9)}, 1)
	e.Analyze([]models.Detection{person(0.9), person(0.9), person(0.9)}, 2)
	e.Analyze([]models.Detection{person(0.9), helmet(0.9)}, 3)
	e.Analyze([]models.Detection{person(0.9), person(0.9), person(0.9), person(0.9), helmet(0.9), helmet(0.9), helmet(0.9), helmet(0.9)}, 4)
	e.Analyze([]models.Detection{person(0.9), person(0.9)}, 5)

	stats := e.Statistics()
	assert.Equal(t, models.Statistics{
		TotalIncidents: 4,
		HighSeverity:   1,
		MediumSeverity: 2,
		LowSeverity:    1,
	}, stats)
	assert.Equal(t, stats.TotalIncidents, stats.HighSeverity+stats.MediumSeverity+stats.LowSeverity)
}

func TestStatistics_Empty(t *testing.T) {
	assert.Equal(t, models.Statistics{}, newTestEngine().Statistics())
}

func TestStatisticsOf(t *testing.T) {
	stats := StatisticsOf([]models.SafetyIncident{
		{Severity: models.SeverityHigh},
		{Severity: models.SeverityLow},
		{Severity: models.SeverityHigh},
	})

	assert.Equal(t, models.Statistics{TotalIncidents: 3, HighSeverity: 2, LowSeverity: 1}, stats)
}

func TestIncidentsReturnsCopy(t *testing.T) {
	e := newTestEngine()
	e.Analyze([]models.Detection{person(0.9)}, 1)

	incidents := e.Incidents()
	incidents[0].Description = "changed"

	assert.Equal(t, "1 person/people without helmet", e.Incidents()[0].Description)
}

func TestSave_RoundTrip(t *testing.T) {
	e := newTestEngine()
	e.Analyze([]models.Detection{person(0.9)}, 1)
	e.Analyze([]models.Detection{person(0.9), helmet(0.9)}, 2)
	e.Analyze([]models.Detection{person(0.9), person(0.9), person(0.9)}, 3)

	path := filepath.Join(t.TempDir(), "violations.json")
	count, err := e.Save(path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := LoadIncidents(path)
	require.NoError(t, err)
	assert.Equal(t, e.Incidents(), loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"timestamp\"")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, "no_helmet", raw[0]["incident_type"])
	assert.Equal(t, float64(3), raw[1]["frame_number"])
}

func TestSave_EmptyLogWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "violations.json")

	count, err := newTestEngine().Save(path)
	require.NoError(t, err)
	assert.Zero(t, count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSave_OverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "violations.json")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer than the new one"), 0644))

	e := newTestEngine()
	e.Analyze([]models.Detection{person(0.9)}, 1)
	_, err := e.Save(path)
	require.NoError(t, err)

	loaded, err := LoadIncidents(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "violations.json")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0644))

	e := newTestEngine()
	e.Analyze([]models.Detection{person(0.9)}, 1)

	_, err := e.Save(filepath.Join(dir, "missing", "violations.json"))
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
