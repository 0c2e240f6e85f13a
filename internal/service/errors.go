package service

import (
	"errors"
)

// ErrOrderIDRequired возвращается, когда в запросе на создание отсутствует orderId
var ErrOrderIDRequired = errors.New("orderId is required")

// ErrPublishFailed возвращается, когда заказ сохранён, но событие опубликовать не удалось.
// Заказ в этот момент уже существует в хранилище (принят, но не нотифицирован) -
// застрявшие NEW заказы добирает republisher.
var ErrPublishFailed = errors.New("failed to publish event")

// TerminalError помечает ошибку, которую повторная доставка события не исправит
// (невалидный конверт, отсутствующий orderId). Транспортный слой не ретраит
// такие ошибки, а сразу отправляет сообщение в DLQ.
//
// Всё, что не помечено как terminal, считается retryable: NotFound (создание
// ещё не видно консьюмеру) и ошибки хранилища уходят в retry/backoff транспорта.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return e.Err.Error()
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Terminal оборачивает ошибку как не подлежащую retry
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// IsTerminal сообщает, помечена ли ошибка как terminal
func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}
