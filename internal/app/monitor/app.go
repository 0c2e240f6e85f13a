package monitor

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/config"
	"github.com/lgilmartin/serverless-snacks/internal/monitor"
	platformhealth "github.com/lgilmartin/serverless-snacks/platform/health/http"
	platformlogging "github.com/lgilmartin/serverless-snacks/platform/logging"
	platformshutdown "github.com/lgilmartin/serverless-snacks/platform/shutdown"
)

// App содержит все зависимости для запуска и корректного shutdown Monitor Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	monitor     *monitor.Monitor
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Monitor Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "monitor",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Monitor service",
		zap.String("dlq_topic", cfg.Kafka.DLQTopic),
		zap.Int("threshold", cfg.MonitorThreshold),
		zap.Duration("interval", cfg.MonitorInterval))

	fetcher := monitor.NewKafkaDepthFetcher(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic)

	// Без webhook алерты уходят только в лог
	var alerter monitor.Alerter
	if cfg.AlertWebhookURL != "" {
		alerter = monitor.NewWebhookAlerter(logger, cfg.AlertWebhookURL)
	} else {
		logger.Warn("ALERT_WEBHOOK_URL is not set, alerts will only be logged")
		alerter = monitor.NewNoOpAlerter(logger)
	}

	mon := monitor.New(logger, fetcher, alerter, cfg.Kafka.DLQTopic, cfg.MonitorThreshold, cfg.MonitorInterval)

	// HTTP только для health check
	router := chi.NewRouter()
	router.Get("/health", platformhealth.Handler(func() bool { return true }))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		monitor:     mon,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Monitor service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.monitor.Run(ctx); err != nil && err != context.Canceled {
			a.logger.Error("monitor error", zap.Error(err))
		}
	}()

	a.shutdownMgr.Wait()

	cancel()
	a.wg.Wait()

	a.logger.Info("Monitor service stopped")
	return nil
}
