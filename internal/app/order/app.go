package order

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httpapi "github.com/lgilmartin/serverless-snacks/internal/api/http"
	"github.com/lgilmartin/serverless-snacks/internal/config"
	eventkafka "github.com/lgilmartin/serverless-snacks/internal/event/kafka"
	"github.com/lgilmartin/serverless-snacks/internal/repository/postgres"
	"github.com/lgilmartin/serverless-snacks/internal/service"
	platformlogging "github.com/lgilmartin/serverless-snacks/platform/logging"
	platformshutdown "github.com/lgilmartin/serverless-snacks/platform/shutdown"
)

// App содержит все зависимости для запуска и корректного shutdown Order Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	republisher *eventkafka.Republisher
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Order Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	// Создаём logger
	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "order",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	// Идентификатор хранилища обязателен; без него сервис не стартует
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Order service", zap.String("http_addr", cfg.HTTPAddr))

	// Подключаемся к PostgreSQL
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

	// Функция readiness для health check
	readiness := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx) == nil
	}

	// Репозиторий и publisher
	orderRepo := postgres.NewRepository(pool)
	publisher := eventkafka.NewOrderCreatedPublisher(logger, cfg.Kafka.Brokers, cfg.Kafka.OrderCreatedTopic)

	// Service слой
	creator := service.NewCreatorService(logger, orderRepo, publisher)

	// HTTP handler и роутер
	handler := httpapi.NewHandler(logger, creator)
	router := httpapi.NewRouter(handler, readiness)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Republisher добирает NEW заказы, чьё событие не было опубликовано
	republisher := eventkafka.NewRepublisher(
		logger,
		orderRepo,
		publisher,
		cfg.RepublishAfter,
		cfg.RepublishInterval,
		cfg.RepublishBatch,
	)

	// Создаём shutdown manager
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
	shutdownMgr.Add("kafka_publisher", platformshutdown.CloseWriter(publisher))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		republisher: republisher,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Order service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

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
		if err := a.republisher.Start(ctx); err != nil {
			a.logger.Error("republisher error", zap.Error(err))
		}
	}()

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	cancel()
	a.wg.Wait()

	a.logger.Info("Order service stopped")
	return nil
}
