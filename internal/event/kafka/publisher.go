package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
)

// OrderCreatedPublisher публикует события создания заказа в Kafka
type OrderCreatedPublisher struct {
	logger *zap.Logger
	writer *kafka.Writer
	topic  string
}

// NewOrderCreatedPublisher создаёт новый Kafka publisher для событий создания заказа
func NewOrderCreatedPublisher(logger *zap.Logger, brokers []string, topic string) *OrderCreatedPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &OrderCreatedPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Close закрывает Kafka writer
func (p *OrderCreatedPublisher) Close() error {
	return p.writer.Close()
}

// PublishOrderCreated публикует событие создания заказа в Kafka
// Конверт повторяет форму исходного события: source + detailType + detail,
// ключ сообщения - orderId, чтобы события одного заказа попадали в одну партицию
func (p *OrderCreatedPublisher) PublishOrderCreated(ctx context.Context, detail event.OrderCreatedDetail) error {
	envelope := event.Envelope{
		ID:         uuid.New().String(),
		Source:     event.Source,
		DetailType: event.DetailTypeOrderCreated,
		Time:       time.Now().UTC(),
		Detail:     detail,
	}

	valueBytes, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("failed to marshal order created event",
			zap.Error(err),
			zap.String("order_id", detail.OrderID),
		)
		return err
	}

	message := kafka.Message{
		Key:   []byte(detail.OrderID),
		Value: valueBytes,
	}

	err = p.writer.WriteMessages(ctx, message)
	if err != nil {
		p.logger.Error("failed to publish order created event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("order_id", detail.OrderID),
		)
		return err
	}

	p.logger.Info("order created event published",
		zap.String("topic", p.topic),
		zap.String("event_id", envelope.ID),
		zap.String("order_id", detail.OrderID),
	)

	return nil
}
