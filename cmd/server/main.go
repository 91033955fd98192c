package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helmet-safety-go/internal/config"
	"helmet-safety-go/internal/database"
	"helmet-safety-go/internal/handler"
	"helmet-safety-go/internal/kafka"
	"helmet-safety-go/internal/metrics"
	"helmet-safety-go/internal/repository"
	"helmet-safety-go/internal/s3"
	"helmet-safety-go/internal/service"
	"helmet-safety-go/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Инициализируем логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Helmet Safety API Server")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Неизвестный уровень логирования %q, используется info", cfg.Logging.Level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Создаем папку для журналов нарушений
	if err := os.MkdirAll(cfg.Storage.ViolationsDir, 0755); err != nil {
		logger.Fatalf("Ошибка создания папки для журналов: %v", err)
	}

	m := metrics.New()
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	deps := service.Dependencies{
		Broadcaster: hub,
		Metrics:     m,
	}

	// База данных необязательна: без DSN журнал ведется только в памяти и в файлах
	if cfg.Postgres.DSN != "" {
		logger.Info("Подключение к базе данных...")
		if err := database.Connect(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatalf("Ошибка подключения к базе данных: %v", err)
		}
		defer database.Close()

		if err := database.Migrate(logger); err != nil {
			logger.Fatalf("Ошибка выполнения миграций: %v", err)
		}
		if err := database.HealthCheck(); err != nil {
			logger.Fatalf("База данных недоступна: %v", err)
		}

		deps.Repository = repository.NewIncidentRepository(database.DB)
		deps.HealthCheck = database.HealthCheck
		logger.Info("База данных успешно подключена и готова к работе")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.IncidentTopic)
		if err != nil {
			logger.Fatalf("Ошибка подключения к Kafka: %v", err)
		}
		defer producer.Close()

		deps.Publisher = producer
		logger.Infof("Нарушения публикуются в топик %s", cfg.Kafka.IncidentTopic)
	}

	if cfg.Minio.Endpoint != "" {
		archive, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			logger.Fatalf("Ошибка подключения к MinIO: %v", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			logger.Fatalf("Ошибка подготовки бакета: %v", err)
		}

		deps.Archiver = archive
		logger.Infof("Журналы архивируются в бакет %s", cfg.Minio.Bucket)
	}

	// Инициализируем сервисы
	monitorService := service.NewMonitorService(cfg.SafetyRules(), cfg.Storage.ViolationsDir, deps, logger)

	// Инициализируем обработчики
	monitorHandler := handler.NewMonitorHandler(monitorService, logger)
	liveHandler := handler.NewLiveHandler(monitorService, hub, logger)

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Регистрируем маршруты
	monitorHandler.RegisterRoutes(router)
	liveHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Helmet Safety API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	go func() {
		logger.Infof("Сервер запущен на %s", cfg.Address())
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Завершение работы...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки сервера: %v", err)
	}

	// Сохраняем журналы всех открытых сессий
	for _, session := range monitorService.ListSessions() {
		if _, err := monitorService.EndSession(shutdownCtx, session.ID); err != nil {
			logger.Errorf("Ошибка завершения сессии %s: %v", session.ID, err)
		}
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
