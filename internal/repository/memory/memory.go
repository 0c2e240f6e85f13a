package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lgilmartin/serverless-snacks/internal/repository"
)

// MemoryRepository реализует OrderRepository используя in-memory хранилище
// Используется для разработки и тестирования
// Условные операции выполняются под мьютексом - проверка и запись атомарны,
// как и в PostgreSQL реализации
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]repository.Order
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[string]repository.Order),
	}
}

// Create вставляет заказ, только если записи с таким OrderID ещё нет
func (r *MemoryRepository) Create(ctx context.Context, order repository.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.OrderID]; exists {
		return repository.ErrAlreadyExists
	}

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	r.orders[order.OrderID] = order
	return nil
}

// MarkProcessed переводит заказ в PROCESSED, только если запись существует
// Повторный вызов для уже обработанного заказа успешен
func (r *MemoryRepository) MarkProcessed(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return repository.ErrNotFound
	}

	order.Status = repository.StatusProcessed
	order.UpdatedAt = time.Now()
	r.orders[orderID] = order
	return nil
}

// GetByID получает заказ по ID из памяти
func (r *MemoryRepository) GetByID(ctx context.Context, orderID string) (repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[orderID]
	if !exists {
		return repository.Order{}, repository.ErrNotFound
	}

	return order, nil
}

// ListStaleNew возвращает заказы, которые остались в NEW дольше olderThan
func (r *MemoryRepository) ListStaleNew(ctx context.Context, olderThan time.Duration, limit int) ([]repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	orders := make([]repository.Order, 0)
	for _, order := range r.orders {
		if order.Status == repository.StatusNew && order.CreatedAt.Before(cutoff) {
			orders = append(orders, order)
			if len(orders) >= limit {
				break
			}
		}
	}

	return orders, nil
}
