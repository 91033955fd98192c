package config

import (
	"errors"
	"fmt"
	"os"

	"helmet-safety-go/pkg/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Host        string `yaml:"host" env:"SERVER_HOST"`
		Port        int    `yaml:"port" env:"SERVER_PORT"`
		Environment string `yaml:"environment" env:"ENVIRONMENT"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"logging"`

	Rules struct {
		RequireHelmet          bool    `yaml:"require_helmet" env:"RULE_REQUIRE_HELMET"`
		RequireVest            bool    `yaml:"require_vest" env:"RULE_REQUIRE_VEST"`
		MinDetectionConfidence float64 `yaml:"min_detection_confidence" env:"RULE_MIN_DETECTION_CONFIDENCE"`
		EnforceMinConfidence   bool    `yaml:"enforce_min_confidence" env:"RULE_ENFORCE_MIN_CONFIDENCE"`
	} `yaml:"rules"`

	Storage struct {
		ViolationsDir string `yaml:"violations_dir" env:"VIOLATIONS_DIR"`
	} `yaml:"storage"`

	// Пустой DSN отключает зеркалирование журнала в Postgres
	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Kafka struct {
		Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		IncidentTopic string   `yaml:"incident_topic" env:"KAFKA_INCIDENT_TOPIC"`
	} `yaml:"kafka"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
		UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL"`
	} `yaml:"minio"`
}

// LoadConfig загружает конфигурацию: .env, затем YAML файл (если указан),
// затем переменные окружения с наивысшим приоритетом
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	// .env не обязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Переменные окружения имеют приоритет над файлом
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default конфигурация по умолчанию
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.Environment = "development"

	cfg.Logging.Level = "info"

	rules := models.DefaultSafetyRules()
	cfg.Rules.RequireHelmet = rules.RequireHelmet
	cfg.Rules.RequireVest = rules.RequireVest
	cfg.Rules.MinDetectionConfidence = rules.MinDetectionConfidence
	cfg.Rules.EnforceMinConfidence = rules.EnforceMinConfidence

	cfg.Storage.ViolationsDir = "violations"

	cfg.Kafka.IncidentTopic = "safety-incidents"

	cfg.Minio.Bucket = "violations"

	return cfg
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Rules.MinDetectionConfidence < 0 || c.Rules.MinDetectionConfidence > 1 {
		return fmt.Errorf("min_detection_confidence must be in [0, 1], got %v", c.Rules.MinDetectionConfidence)
	}
	if c.Storage.ViolationsDir == "" {
		return errors.New("violations_dir must not be empty")
	}
	return nil
}

// SafetyRules правила движка из конфигурации
func (c *Config) SafetyRules() models.SafetyRules {
	return models.SafetyRules{
		RequireHelmet:          c.Rules.RequireHelmet,
		RequireVest:            c.Rules.RequireVest,
		MinDetectionConfidence: c.Rules.MinDetectionConfidence,
		EnforceMinConfidence:   c.Rules.EnforceMinConfidence,
	}
}

// Address адрес HTTP сервера
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
