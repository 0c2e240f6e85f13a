package repository

import (
	"context"
	"errors"
	"time"
)

// Status представляет состояние заказа
// Переход только NEW -> PROCESSED, обратных переходов нет
type Status string

const (
	// StatusNew - заказ создан, но ещё не обработан
	StatusNew Status = "NEW"
	// StatusProcessed - заказ обработан
	StatusProcessed Status = "PROCESSED"
)

// Order представляет доменную модель заказа
// OrderID приходит извне, уникален и неизменяем - он же ключ идемпотентности
type Order struct {
	OrderID   string
	Item      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrAlreadyExists возвращается из Create, когда заказ с таким orderId уже есть в хранилище
var ErrAlreadyExists = errors.New("order already exists")

// ErrNotFound возвращается, когда заказ не найден в хранилище
var ErrNotFound = errors.New("order not found")

// OrderRepository определяет интерфейс для работы с хранилищем заказов
// Обе условные операции атомарны относительно проверки существования записи:
// конкурирующие вызовы разрешает само хранилище, а не клиентский код
type OrderRepository interface {
	// Create вставляет заказ, только если записи с таким OrderID ещё нет.
	// Возвращает ErrAlreadyExists, если запись уже существует.
	Create(ctx context.Context, order Order) error

	// MarkProcessed переводит заказ в статус PROCESSED, только если запись существует.
	// Возвращает ErrNotFound, если записи нет. Повторный вызов для уже
	// обработанного заказа успешен (условие проверяет существование, не статус).
	MarkProcessed(ctx context.Context, orderID string) error

	// GetByID получает заказ по ID.
	// Возвращает ErrNotFound, если заказ не найден.
	GetByID(ctx context.Context, orderID string) (Order, error)

	// ListStaleNew возвращает заказы, которые остались в статусе NEW дольше olderThan.
	// Используется republisher-ом для восстановления заказов, чьё событие не было опубликовано.
	ListStaleNew(ctx context.Context, olderThan time.Duration, limit int) ([]Order, error)
}
