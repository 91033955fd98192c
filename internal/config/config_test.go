package config

import (
	"os"
	"path/filepath"
	"testing"

	"helmet-safety-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "violations", cfg.Storage.ViolationsDir)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, models.DefaultSafetyRules(), cfg.SafetyRules())
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
rules:
  require_vest: true
  min_detection_confidence: 0.7
kafka:
  brokers: ["kafka-1:9092"]
`), 0644))

	t.Setenv("RULE_MIN_DETECTION_CONFIDENCE", "0.6")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Address())
	assert.True(t, cfg.Rules.RequireHelmet)
	assert.True(t, cfg.Rules.RequireVest)
	assert.Equal(t, 0.6, cfg.Rules.MinDetectionConfidence)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "safety-incidents", cfg.Kafka.IncidentTopic)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidConfidence(t *testing.T) {
	t.Setenv("RULE_MIN_DETECTION_CONFIDENCE", "1.5")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.ViolationsDir = ""
	assert.Error(t, cfg.Validate())
}
