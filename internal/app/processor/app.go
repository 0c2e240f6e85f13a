package processor

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/config"
	eventkafka "github.com/lgilmartin/serverless-snacks/internal/event/kafka"
	"github.com/lgilmartin/serverless-snacks/internal/repository/postgres"
	"github.com/lgilmartin/serverless-snacks/internal/service"
	platformhealth "github.com/lgilmartin/serverless-snacks/platform/health/http"
	platformlogging "github.com/lgilmartin/serverless-snacks/platform/logging"
	platformshutdown "github.com/lgilmartin/serverless-snacks/platform/shutdown"
)

// App содержит все зависимости для запуска и корректного shutdown Processor Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumer    *eventkafka.OrderCreatedConsumer
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Processor Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "processor",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Processor service",
		zap.String("topic", cfg.Kafka.OrderCreatedTopic),
		zap.String("group_id", cfg.ConsumerGroupID))

	logger.Info("Connecting to PostgreSQL")
	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("PostgreSQL connection established")

	readiness := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx) == nil
	}

	orderRepo := postgres.NewRepository(pool)
	processorSvc := service.NewProcessorService(logger, orderRepo)

	dlq := eventkafka.NewDLQPublisher(logger, cfg.Kafka.Brokers, cfg.Kafka.DLQTopic)

	consumer := eventkafka.NewOrderCreatedConsumer(
		logger,
		cfg.Kafka.Brokers,
		cfg.ConsumerGroupID,
		cfg.Kafka.OrderCreatedTopic,
		processorSvc,
		dlq,
		cfg.RetryMaxAttempts,
		cfg.RetryBackoffBase,
		cfg.HandlerTimeout,
	)

	// HTTP только для health check
	router := chi.NewRouter()
	router.Get("/health", platformhealth.Handler(readiness))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
	shutdownMgr.Add("dlq_publisher", platformshutdown.CloseWriter(dlq))
	shutdownMgr.Add("kafka_consumer", platformshutdown.CloseWriter(consumer))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		consumer:    consumer,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Processor service")

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
		if err := a.consumer.Start(ctx); err != nil {
			a.logger.Error("consumer error", zap.Error(err))
		}
	}()

	a.shutdownMgr.Wait()

	cancel()
	a.wg.Wait()

	a.logger.Info("Processor service stopped")
	return nil
}
