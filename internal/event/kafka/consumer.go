package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/service"
)

// OrderProcessor определяет интерфейс обработки события создания заказа
// Реализуется service.ProcessorService; в тестах подменяется фейком
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, envelope event.Envelope) (service.ProcessOrderOutput, error)
}

// DLQSink определяет интерфейс отправки сообщения в dead letter queue
type DLQSink interface {
	Publish(ctx context.Context, msg kafka.Message, cause error, eventID, orderID string) error
}

// OrderCreatedConsumer обрабатывает события создания заказа из Kafka
// Доставка at-least-once: FetchMessage + CommitMessages после успешной
// обработки или после отправки в DLQ. Retry с backoff выполняется здесь,
// на транспортном уровне - обработчик сам никогда не ретраит
type OrderCreatedConsumer struct {
	logger         *zap.Logger
	reader         *kafka.Reader
	processor      OrderProcessor
	dlq            DLQSink
	maxAttempts    int
	backoffBase    time.Duration
	handlerTimeout time.Duration
}

// NewOrderCreatedConsumer создаёт новый consumer для событий создания заказа
func NewOrderCreatedConsumer(
	logger *zap.Logger,
	brokers []string,
	groupID, topic string,
	processor OrderProcessor,
	dlq DLQSink,
	maxAttempts int,
	backoffBase time.Duration,
	handlerTimeout time.Duration,
) *OrderCreatedConsumer {
	// Safety defaults (на случай кривого env/config)
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = 1 * time.Second
	}
	if handlerTimeout <= 0 {
		handlerTimeout = 30 * time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &OrderCreatedConsumer{
		logger:         logger,
		reader:         reader,
		processor:      processor,
		dlq:            dlq,
		maxAttempts:    maxAttempts,
		backoffBase:    backoffBase,
		handlerTimeout: handlerTimeout,
	}
}

// Start запускает consumer и начинает обработку сообщений
func (c *OrderCreatedConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID),
		zap.Int("max_retry_attempts", c.maxAttempts),
	)

	for {
		// FetchMessage вместо ReadMessage для ручного контроля commit
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka",
				zap.Error(err),
			)
			continue
		}

		shouldCommit := c.processMessage(ctx, m)

		// Коммитим offset только после успешной обработки или отправки в DLQ
		if shouldCommit {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.Error("failed to commit message offset",
					zap.Error(err),
					zap.String("topic", m.Topic),
					zap.Int("partition", m.Partition),
					zap.Int64("offset", m.Offset),
				)
				continue
			}

			c.logger.Debug("message offset committed",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

// processMessage обрабатывает одно сообщение из Kafka
// Возвращает true, если нужно закоммитить offset (успешная обработка или отправка в DLQ)
func (c *OrderCreatedConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	var envelope event.Envelope
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		c.logger.Error("failed to unmarshal kafka message - sending to DLQ",
			zap.Error(err),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)

		// Poison pill: retry не поможет, отправляем в DLQ и коммитим
		return c.sendToDLQ(ctx, m, err, "", "")
	}

	c.logger.Info("received order created event",
		zap.String("event_id", envelope.ID),
		zap.String("order_id", envelope.Detail.OrderID),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	// Первая попытка без backoff; terminal ошибки уходят в DLQ сразу
	err := c.process(ctx, envelope)
	if err == nil {
		c.logger.Info("order created event processed successfully",
			zap.String("order_id", envelope.Detail.OrderID),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		return true
	}

	if service.IsTerminal(err) {
		c.logger.Error("terminal fault - sending to DLQ without retry",
			zap.Error(err),
			zap.String("event_id", envelope.ID),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		return c.sendToDLQ(ctx, m, err, envelope.ID, envelope.Detail.OrderID)
	}

	// Retryable fault: ретраим с backoff до лимита
	lastErr := c.retry(ctx, envelope, err)
	if lastErr == nil {
		c.logger.Info("order created event processed successfully after retry",
			zap.String("order_id", envelope.Detail.OrderID),
		)
		return true
	}

	c.logger.Error("failed to handle order created event after all retries - sending to DLQ",
		zap.Error(lastErr),
		zap.String("order_id", envelope.Detail.OrderID),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	return c.sendToDLQ(ctx, m, lastErr, envelope.ID, envelope.Detail.OrderID)
}

// retry повторяет обработку события с экспоненциальным backoff: base, 2*base, 4*base...
// Первая попытка уже сделана вызывающим кодом; firstErr - её результат.
// Возвращает nil при успехе или последнюю ошибку при исчерпании попыток.
func (c *OrderCreatedConsumer) retry(ctx context.Context, envelope event.Envelope, firstErr error) error {
	lastErr := firstErr

	for attempt := 2; attempt <= c.maxAttempts; attempt++ {
		backoff := c.backoffBase * time.Duration(1<<uint(attempt-2))
		c.logger.Info("retrying order created event",
			zap.String("order_id", envelope.Detail.OrderID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff):
		}

		err := c.process(ctx, envelope)
		if err == nil {
			return nil
		}
		if service.IsTerminal(err) {
			return err
		}

		lastErr = err
		c.logger.Warn("failed to handle order created event",
			zap.Error(err),
			zap.String("order_id", envelope.Detail.OrderID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		)
	}

	c.logger.Error("exhausted all retry attempts",
		zap.Error(lastErr),
		zap.String("order_id", envelope.Detail.OrderID),
		zap.Int("max_attempts", c.maxAttempts),
	)

	return lastErr
}

// process выполняет одну попытку обработки с ограничением по времени
// Превышение таймаута - retryable fault, как и ошибка хранилища
func (c *OrderCreatedConsumer) process(ctx context.Context, envelope event.Envelope) error {
	pctx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
	defer cancel()

	_, err := c.processor.ProcessOrder(pctx, envelope)
	return err
}

// sendToDLQ отправляет сообщение в DLQ
// Возвращает true, если отправка удалась и offset можно коммитить
func (c *OrderCreatedConsumer) sendToDLQ(ctx context.Context, m kafka.Message, cause error, eventID, orderID string) bool {
	if err := c.dlq.Publish(ctx, m, cause, eventID, orderID); err != nil {
		c.logger.Error("failed to send message to DLQ",
			zap.Error(err),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		// Не коммитим: сообщение будет перечитано
		return false
	}
	return true
}

// Close закрывает Kafka reader
func (c *OrderCreatedConsumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.reader.Close()
}
