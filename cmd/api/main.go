package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/smileworks/dental-ai-platform/cmd/mainconfig"
	"github.com/smileworks/dental-ai-platform/internal/api/router"
	"github.com/smileworks/dental-ai-platform/internal/assistant"
	"github.com/smileworks/dental-ai-platform/internal/booking"
	"github.com/smileworks/dental-ai-platform/internal/calendar"
	appconfig "github.com/smileworks/dental-ai-platform/internal/config"
	"github.com/smileworks/dental-ai-platform/internal/dispatch"
	"github.com/smileworks/dental-ai-platform/internal/history"
	"github.com/smileworks/dental-ai-platform/internal/moderation"
	"github.com/smileworks/dental-ai-platform/internal/observability/metrics"
	"github.com/smileworks/dental-ai-platform/internal/schedule"
	"github.com/smileworks/dental-ai-platform/internal/session"
	"github.com/smileworks/dental-ai-platform/internal/store"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"clinic", cfg.ClinicName,
	)

	ctx := context.Background()

	// Appointment and profile records live in DynamoDB.
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	records := store.NewDynamoStore(dynamoClient, cfg.RecordsTable, logger)

	// Session state on Redis when configured, in-process otherwise.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		sessions = session.NewRedisStore(redis.NewClient(opts))
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, session state is process-local")
	}

	loc := schedule.ClinicLocation(cfg.ClinicTimezone)
	normalizer := schedule.NewNormalizer(loc)

	cal, err := calendar.NewGoogleCalendar(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCalendarID, cfg.ClinicTimezone, logger)
	if err != nil {
		logger.Error("failed to initialize google calendar", "error", err)
		os.Exit(1)
	}
	availability := calendar.NewAvailability(cal)
	finder := schedule.NewFinder(availability, logger)

	workflow := booking.NewWorkflow(normalizer, availability, finder, cal, records, sessions, cfg.ClinicName, logger)
	guard := moderation.NewGuard(sessions, logger)

	// Operation audit log is optional; without DATABASE_URL it is a no-op.
	var opLog *history.Log
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		opLog = history.NewLog(db)
		logger.Info("operation history enabled")
	} else {
		logger.Warn("DATABASE_URL not set, operation history disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	assistantMetrics := metrics.NewAssistantMetrics(registry)

	dispatcher := dispatch.NewDispatcher(workflow, guard, sessions, assistantMetrics, opLog, logger)

	// The conversational layer is optional; without an API key only the
	// structured tool endpoints are served.
	var responder router.Responder
	if cfg.GeminiAPIKey != "" {
		agent, err := assistant.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, dispatcher, cfg.ClinicName, logger)
		if err != nil {
			logger.Error("failed to initialize assistant", "error", err)
			os.Exit(1)
		}
		defer func() { _ = agent.Close() }()
		responder = agent
		logger.Info("conversational assistant enabled", "model", cfg.GeminiModelID)
	} else {
		logger.Warn("GEMINI_API_KEY not set, /v1/chat disabled")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Dispatcher:         dispatcher,
		Assistant:          responder,
		Sessions:           sessions,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
