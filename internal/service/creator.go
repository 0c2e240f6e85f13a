package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/repository"
)

// defaultItem подставляется, если item в запросе не указан
const defaultItem = "unknown"

// CreatorService содержит бизнес-логику создания заказов
// Идемпотентность создания обеспечивает условная вставка в хранилище:
// из конкурирующих запросов с одним orderId ровно один получает успех
type CreatorService struct {
	logger    *zap.Logger
	orderRepo repository.OrderRepository
	publisher OrderEventPublisher
}

// NewCreatorService создаёт новый экземпляр CreatorService
// Принимает интерфейсы как зависимости - это позволяет подменять их в тестах
func NewCreatorService(logger *zap.Logger, orderRepo repository.OrderRepository, publisher OrderEventPublisher) *CreatorService {
	return &CreatorService{
		logger:    logger,
		orderRepo: orderRepo,
		publisher: publisher,
	}
}

// CreateOrderInput содержит входные данные для создания заказа
type CreateOrderInput struct {
	OrderID string
	Item    string
}

// CreateOrderOutput содержит результат создания заказа
type CreateOrderOutput struct {
	OrderID string
	Status  repository.Status
}

// CreateOrder идемпотентно создаёт заказ и публикует событие создания
// Повторное создание с тем же orderId возвращает ErrAlreadyExists и
// не публикует событие - дубликат не должен повторно запускать обработку
func (s *CreatorService) CreateOrder(ctx context.Context, input CreateOrderInput) (CreateOrderOutput, error) {
	if input.OrderID == "" {
		return CreateOrderOutput{}, ErrOrderIDRequired
	}

	item := input.Item
	if item == "" {
		item = defaultItem
	}

	order := repository.Order{
		OrderID: input.OrderID,
		Item:    item,
		Status:  repository.StatusNew,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.logger.Warn("order already exists",
				zap.String("order_id", input.OrderID),
			)
			return CreateOrderOutput{}, err
		}
		s.logger.Error("failed to create order",
			zap.Error(err),
			zap.String("order_id", input.OrderID),
		)
		return CreateOrderOutput{}, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", input.OrderID),
		zap.String("item", item),
	)

	// Заказ уже в хранилище; если публикация не удалась, его событие
	// переотправит republisher
	detail := event.OrderCreatedDetail{
		OrderID: input.OrderID,
		Item:    item,
	}
	if err := s.publisher.PublishOrderCreated(ctx, detail); err != nil {
		s.logger.Error("failed to publish order created event",
			zap.Error(err),
			zap.String("order_id", input.OrderID),
		)
		return CreateOrderOutput{}, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	return CreateOrderOutput{
		OrderID: input.OrderID,
		Status:  repository.StatusNew,
	}, nil
}

// GetOrder получает заказ по ID
func (s *CreatorService) GetOrder(ctx context.Context, orderID string) (repository.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return repository.Order{}, err
	}
	return order, nil
}
