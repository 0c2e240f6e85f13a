package service

import (
	"context"

	"github.com/lgilmartin/serverless-snacks/internal/event"
)

// OrderEventPublisher определяет интерфейс для публикации событий создания заказа
// Service слой зависит от интерфейса, а не от Kafka напрямую -
// в тестах publisher подменяется моком
type OrderEventPublisher interface {
	// PublishOrderCreated публикует событие создания заказа
	PublishOrderCreated(ctx context.Context, detail event.OrderCreatedDetail) error
}
