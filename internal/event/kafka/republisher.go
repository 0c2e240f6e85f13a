package kafka

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/repository"
	"github.com/lgilmartin/serverless-snacks/internal/service"
)

// Republisher закрывает окно между успешной записью заказа и неудавшейся
// публикацией события: периодически сканирует заказы, застрявшие в NEW,
// и переотправляет их события создания.
//
// Дубликаты событий безопасны - транспорт и так at-least-once, а обработка
// идемпотентна. Заказ перестаёт попадать в выборку, как только консьюмер
// переведёт его в PROCESSED.
type Republisher struct {
	logger    *zap.Logger
	repo      repository.OrderRepository
	publisher service.OrderEventPublisher
	olderThan time.Duration
	interval  time.Duration
	batchSize int
}

// NewRepublisher создаёт новый republisher
// olderThan - минимальный возраст NEW заказа для переотправки (дать консьюмеру
// время обработать событие штатным путём), interval - период сканирования
func NewRepublisher(
	logger *zap.Logger,
	repo repository.OrderRepository,
	publisher service.OrderEventPublisher,
	olderThan time.Duration,
	interval time.Duration,
	batchSize int,
) *Republisher {
	return &Republisher{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		olderThan: olderThan,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start запускает republisher в фоновом режиме
func (r *Republisher) Start(ctx context.Context) error {
	r.logger.Info("starting republisher",
		zap.Duration("older_than", r.olderThan),
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("republisher context cancelled, stopping")
			return nil
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("failed to process batch", zap.Error(err))
			}
		}
	}
}

// processBatch переотправляет события для батча застрявших NEW заказов
func (r *Republisher) processBatch(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	orders, err := r.repo.ListStaleNew(ctx, r.olderThan, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale orders: %w", err)
	}

	if len(orders) == 0 {
		return nil
	}

	r.logger.Info("republishing stale orders",
		zap.Int("count", len(orders)),
	)

	for _, order := range orders {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		detail := event.OrderCreatedDetail{
			OrderID: order.OrderID,
			Item:    order.Item,
		}
		if err := r.publisher.PublishOrderCreated(ctx, detail); err != nil {
			r.logger.Error("failed to republish order created event",
				zap.Error(err),
				zap.String("order_id", order.OrderID),
			)
			// Продолжаем со следующим заказом; этот попадёт в выборку снова
			continue
		}

		r.logger.Info("order created event republished",
			zap.String("order_id", order.OrderID),
			zap.Time("created_at", order.CreatedAt),
		)
	}

	return nil
}
