package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/repository"
)

// ProcessorService содержит бизнес-логику обработки событий создания заказа
// Обработка идемпотентна по эффекту: повторная доставка события переводит
// уже обработанный заказ в тот же статус PROCESSED и считается успехом
type ProcessorService struct {
	logger    *zap.Logger
	orderRepo repository.OrderRepository
}

// NewProcessorService создаёт новый экземпляр ProcessorService
func NewProcessorService(logger *zap.Logger, orderRepo repository.OrderRepository) *ProcessorService {
	return &ProcessorService{
		logger:    logger,
		orderRepo: orderRepo,
	}
}

// ProcessOrderOutput содержит результат обработки заказа
type ProcessOrderOutput struct {
	OrderID string
	Status  repository.Status
}

// ProcessOrder переводит заказ в статус PROCESSED
// Классификация ошибок:
//   - невалидный конверт -> terminal, транспорт отправляет сообщение в DLQ без retry;
//   - заказ не найден (создание ещё не видно) или ошибка хранилища -> retryable,
//     транспорт ретраит доставку с backoff до лимита, затем DLQ.
func (s *ProcessorService) ProcessOrder(ctx context.Context, envelope event.Envelope) (ProcessOrderOutput, error) {
	if err := envelope.Validate(); err != nil {
		s.logger.Error("invalid event: missing detail or orderId",
			zap.String("event_id", envelope.ID),
			zap.String("source", envelope.Source),
			zap.String("detail_type", envelope.DetailType),
		)
		return ProcessOrderOutput{}, Terminal(err)
	}

	orderID := envelope.Detail.OrderID

	if err := s.orderRepo.MarkProcessed(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("order does not exist, cannot process",
				zap.String("order_id", orderID),
			)
			return ProcessOrderOutput{}, err
		}
		s.logger.Error("failed to process order",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return ProcessOrderOutput{}, fmt.Errorf("failed to process order: %w", err)
	}

	s.logger.Info("order processed",
		zap.String("order_id", orderID),
		zap.String("event_id", envelope.ID),
	)

	return ProcessOrderOutput{
		OrderID: orderID,
		Status:  repository.StatusProcessed,
	}, nil
}
