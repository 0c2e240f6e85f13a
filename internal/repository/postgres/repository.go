package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lgilmartin/serverless-snacks/internal/repository"
)

// Repository реализует OrderRepository используя PostgreSQL
// Условные операции построены на атомарных SQL-запросах:
// INSERT ... ON CONFLICT DO NOTHING для создания и UPDATE ... WHERE order_id
// для обработки. Окна между проверкой и записью нет - гонку разрешает БД.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// Create вставляет заказ, только если записи с таким order_id ещё нет
// rows affected == 0 означает, что conflict сработал и запись уже существует
func (r *Repository) Create(ctx context.Context, order repository.Order) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO orders (order_id, item, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (order_id) DO NOTHING`,
		order.OrderID, order.Item, string(order.Status))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}

	return nil
}

// MarkProcessed переводит заказ в статус PROCESSED, только если запись существует
// Статус не входит в условие: повторный перевод PROCESSED -> PROCESSED успешен
func (r *Repository) MarkProcessed(ctx context.Context, orderID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $2, updated_at = now()
		 WHERE order_id = $1`,
		orderID, string(repository.StatusProcessed))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID получает заказ по ID из PostgreSQL
func (r *Repository) GetByID(ctx context.Context, orderID string) (repository.Order, error) {
	var order repository.Order
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT order_id, item, status, created_at, updated_at
		 FROM orders
		 WHERE order_id = $1`,
		orderID).Scan(&order.OrderID, &order.Item, &status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Order{}, repository.ErrNotFound
		}
		return repository.Order{}, err
	}

	order.Status = repository.Status(status)
	return order, nil
}

// ListStaleNew возвращает заказы, которые остались в NEW дольше olderThan
// Порядок по created_at, чтобы republisher обрабатывал самые старые первыми
func (r *Repository) ListStaleNew(ctx context.Context, olderThan time.Duration, limit int) ([]repository.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, item, status, created_at, updated_at
		 FROM orders
		 WHERE status = $1 AND created_at < now() - make_interval(secs => $2)
		 ORDER BY created_at
		 LIMIT $3`,
		string(repository.StatusNew), olderThan.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]repository.Order, 0)
	for rows.Next() {
		var order repository.Order
		var status string
		if err := rows.Scan(&order.OrderID, &order.Item, &status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Status = repository.Status(status)
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
