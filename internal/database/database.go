package database

import (
	"context"
	"fmt"
	"time"

	"helmet-safety-go/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB глобальная переменная для подключения к базе данных
var DB *gorm.DB

// Connect подключается к базе данных PostgreSQL
func Connect(dsn string, log *logrus.Logger) error {
	// SQL пишется через общий logrus, уровень берется из него же
	gormLogger := logger.New(log, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormLevel(log.GetLevel()),
		IgnoreRecordNotFoundError: true,
	})

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настройка пула соединений
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Запись идет по одному кадру, большой пул не нужен
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("Подключение к PostgreSQL установлено")
	return nil
}

// Migrate выполняет автомиграции
func Migrate(log *logrus.Logger) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	if err := DB.AutoMigrate(&model.Session{}, &model.Incident{}); err != nil {
		return fmt.Errorf("failed to migrate sessions and incidents: %w", err)
	}

	log.Info("Таблицы sessions и incidents готовы")
	return nil
}

// Close закрывает соединение с базой данных
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

const healthTimeout = 2 * time.Second

// HealthCheck проверяет, что зеркало журнала доступно
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func gormLevel(level logrus.Level) logger.LogLevel {
	switch {
	case level >= logrus.DebugLevel:
		return logger.Info
	case level >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}
