package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	_ "github.com/signalhouse/dispatch/docs"
	"github.com/signalhouse/dispatch/internal/adapter"
	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/handler"
	"github.com/signalhouse/dispatch/internal/ingest"
	"github.com/signalhouse/dispatch/internal/metrics"
	"github.com/signalhouse/dispatch/internal/middleware"
	"github.com/signalhouse/dispatch/internal/repository/postgres"
	"github.com/signalhouse/dispatch/internal/repository/redis"
	"github.com/signalhouse/dispatch/internal/resolver"
	"github.com/signalhouse/dispatch/internal/worker"
)

// @title Notification Dispatch API
// @version 1.0
// @description Multi-channel notification dispatch service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@signalhouse.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logLevel := slog.LevelInfo
	if cfg.App.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.App.LogFile != "" {
		logOut = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    cfg.App.LogMaxSizeMB,
			MaxBackups: cfg.App.LogMaxBackups,
			MaxAge:     cfg.App.LogMaxAgeDays,
			Compress:   true,
		})
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting notification dispatch service",
		"env", cfg.App.Env,
		"port", cfg.Server.Port,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Apply database migrations
	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Initialize repositories
	notificationRepo := postgres.NewNotificationRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	preferenceRepo := postgres.NewPreferenceRepository(db)
	tokenRepo := postgres.NewDeviceTokenRepository(db)
	userRepo := postgres.NewUserRepository(db)
	queue := redis.NewQueue(redisClient, cfg.Queue)
	limiter := redis.NewRateLimiter(redisClient, cfg.Worker.RateLimitPerSec)

	// Initialize resolver and metrics
	res := resolver.New(userRepo, preferenceRepo, tokenRepo, templateRepo, logger)
	collector := metrics.NewCollector(queue, logger, cfg.Metrics.SampleInterval, cfg.Metrics.WindowSize)

	// Initialize channel adapters, each behind a circuit breaker
	emailAdapter := adapter.WithBreaker(adapter.NewEmailAdapter(cfg.SMTP), logger)
	pushAdapter := adapter.WithBreaker(adapter.NewPushAdapter(cfg.Push), logger)
	smsOutbound := adapter.NewSMSAdapter(cfg.SMS, cfg.Kafka)
	smsAdapter := adapter.WithBreaker(smsOutbound, logger)

	// Initialize worker pools, one per channel
	emailPool := worker.NewPool(cfg.Worker.EmailCount, notificationRepo, queue, limiter, res, emailAdapter, collector, logger, cfg.Worker)
	pushPool := worker.NewPool(cfg.Worker.PushCount, notificationRepo, queue, limiter, res, pushAdapter, collector, logger, cfg.Worker)
	smsPool := worker.NewPool(cfg.Worker.SMSCount, notificationRepo, queue, limiter, res, smsAdapter, collector, logger, cfg.Worker)

	// Initialize dispatch pipeline
	d := dispatcher.New(notificationRepo, queue, res, logger)
	retrier := dispatcher.NewRetryOrchestrator(notificationRepo, queue, logger, cfg.Retry)
	cleaner := dispatcher.NewCleaner(notificationRepo, logger, cfg.Cleanup)

	// Initialize event stream
	publisher := ingest.NewPublisher(cfg.Kafka, logger)
	ingestor := ingest.NewIngestor(d, res, collector, logger, cfg.Kafka.ConsumerSubBatch)
	consumer := ingest.NewConsumer(ingestor, logger, cfg.Kafka)

	// Initialize handlers
	notificationHandler := handler.NewNotificationHandler(d, notificationRepo, publisher)
	preferenceHandler := handler.NewPreferenceHandler(res)
	templateHandler := handler.NewTemplateHandler(templateRepo, res)
	adminHandler := handler.NewAdminHandler(retrier)
	streamHandler := handler.NewStreamHandler(d, logger)
	metricsHandler := handler.NewMetricsHandler(collector, queue)

	healthHandler := handler.NewHealthHandler(collector)
	healthHandler.AddChecker("postgres", db)
	healthHandler.AddChecker("redis", redisClient)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Correlation)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, collector))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.RequestSize(4 << 20))

	// Health endpoints
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/healthz/live", healthHandler.Liveness)
	r.Get("/healthz/ready", healthHandler.Readiness)

	// Metrics endpoints
	r.Handle("/metrics", metricsHandler.Handler())
	r.Get("/metrics/realtime", metricsHandler.RealtimeMetrics)

	// Dispatch stream
	r.Get("/ws/notifications", streamHandler.SendNotificationStream)

	// API documentation
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			notificationHandler.RegisterRoutes(r)
		})

		r.Route("/users", func(r chi.Router) {
			preferenceHandler.RegisterRoutes(r)
		})

		r.Route("/templates", func(r chi.Router) {
			templateHandler.RegisterRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			adminHandler.RegisterRoutes(r)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start background loops
	if err := collector.Start(ctx); err != nil {
		logger.Error("failed to start metrics collector", "error", err)
		os.Exit(1)
	}

	for _, pool := range []*worker.Pool{emailPool, pushPool, smsPool} {
		if err := pool.Start(ctx); err != nil {
			logger.Error("failed to start worker pool", "error", err)
			os.Exit(1)
		}
	}

	if err := retrier.Start(ctx); err != nil {
		logger.Error("failed to start retry orchestrator", "error", err)
		os.Exit(1)
	}

	if err := cleaner.Start(ctx); err != nil {
		logger.Error("failed to start cleaner", "error", err)
		os.Exit(1)
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to start event consumer", "error", err)
		os.Exit(1)
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new requests
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop ingesting events (drains in-flight handlers, then commits)
	consumer.Stop()

	// Stop delivery workers (waits for in-flight jobs)
	emailPool.Stop()
	pushPool.Stop()
	smsPool.Stop()

	// Stop periodic loops
	retrier.Stop()
	cleaner.Stop()
	collector.Stop()

	// Flush producers
	if err := publisher.Close(); err != nil {
		logger.Error("failed to close bulk publisher", "error", err)
	}
	if err := smsOutbound.Close(); err != nil {
		logger.Error("failed to close sms producer", "error", err)
	}

	// Cancel context
	cancel()

	logger.Info("server stopped")
}
