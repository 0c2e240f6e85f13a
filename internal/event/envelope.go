package event

import (
	"errors"
	"time"
)

const (
	// Source - идентификатор источника событий этой системы
	Source = "serverless.snacks"
	// DetailTypeOrderCreated - тип события создания заказа
	DetailTypeOrderCreated = "OrderCreated"
)

// OrderCreatedDetail - полезная нагрузка события создания заказа
type OrderCreatedDetail struct {
	OrderID string `json:"orderId"`
	Item    string `json:"item"`
}

// Envelope - конверт события в транспорте
// Подписчики фильтруют события по паре (source, detailType)
type Envelope struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	DetailType string             `json:"detailType"`
	Time       time.Time          `json:"time"`
	Detail     OrderCreatedDetail `json:"detail"`
}

// ErrInvalidEnvelope возвращается, когда конверт не проходит валидацию подписчика
var ErrInvalidEnvelope = errors.New("invalid event payload")

// Validate проверяет, что конверт адресован обработчику заказов:
// source и detailType совпадают с ожидаемыми, а detail содержит orderId.
// Невалидный конверт не ретраится - повторная доставка его не исправит.
func (e Envelope) Validate() error {
	if e.Source != Source || e.DetailType != DetailTypeOrderCreated {
		return ErrInvalidEnvelope
	}
	if e.Detail.OrderID == "" {
		return ErrInvalidEnvelope
	}
	return nil
}
