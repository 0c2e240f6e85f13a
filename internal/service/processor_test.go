package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/repository"
)

func validEnvelope(orderID string) event.Envelope {
	return event.Envelope{
		ID:         "evt-1",
		Source:     event.Source,
		DetailType: event.DetailTypeOrderCreated,
		Time:       time.Now().UTC(),
		Detail: event.OrderCreatedDetail{
			OrderID: orderID,
			Item:    "chips",
		},
	}
}

func TestProcessorService_ProcessOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("success: order transitions to PROCESSED", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewProcessorService(zap.NewNop(), mockRepo)

		mockRepo.On("MarkProcessed", ctx, "order-123").Return(nil).Once()

		out, err := svc.ProcessOrder(ctx, validEnvelope("order-123"))
		require.NoError(t, err)
		require.Equal(t, "order-123", out.OrderID)
		require.Equal(t, repository.StatusProcessed, out.Status)

		mockRepo.AssertExpectations(t)
	})

	t.Run("success: redelivery of already processed order is a no-op success", func(t *testing.T) {
		// UPDATE без guard по статусу: PROCESSED -> PROCESSED тоже успех
		mockRepo := new(MockOrderRepository)
		svc := NewProcessorService(zap.NewNop(), mockRepo)

		mockRepo.On("MarkProcessed", ctx, "order-123").Return(nil).Twice()

		_, err := svc.ProcessOrder(ctx, validEnvelope("order-123"))
		require.NoError(t, err)

		out, err := svc.ProcessOrder(ctx, validEnvelope("order-123"))
		require.NoError(t, err)
		require.Equal(t, repository.StatusProcessed, out.Status)

		mockRepo.AssertExpectations(t)
	})

	t.Run("terminal: envelope without orderId", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewProcessorService(zap.NewNop(), mockRepo)

		_, err := svc.ProcessOrder(ctx, validEnvelope(""))
		require.Error(t, err)
		require.True(t, IsTerminal(err))

		mockRepo.AssertNotCalled(t, "MarkProcessed")
	})

	t.Run("terminal: envelope from foreign source", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewProcessorService(zap.NewNop(), mockRepo)

		envelope := validEnvelope("order-123")
		envelope.Source = "some.other.system"

		_, err := svc.ProcessOrder(ctx, envelope)
		require.Error(t, err)
		require.True(t, IsTerminal(err))

		mockRepo.AssertNotCalled(t, "MarkProcessed")
	})

	t.Run("retryable: order not found", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewProcessorService(zap.NewNop(), mockRepo)

		mockRepo.On("MarkProcessed", ctx, "order-404").Return(repository.ErrNotFound).Once()

		_, err := svc.ProcessOrder(ctx, validEnvelope("order-404"))
		require.ErrorIs(t, err, repository.ErrNotFound)
		require.False(t, IsTerminal(err))

		mockRepo.AssertExpectations(t)
	})

	t.Run("retryable: storage failure is wrapped", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := NewProcessorService(zap.NewNop(), mockRepo)

		mockRepo.On("MarkProcessed", ctx, "order-123").
			Return(errors.New("connection refused")).Once()

		_, err := svc.ProcessOrder(ctx, validEnvelope("order-123"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to process order")
		require.False(t, IsTerminal(err))

		mockRepo.AssertExpectations(t)
	})
}

func TestTerminalError(t *testing.T) {
	cause := errors.New("boom")
	err := Terminal(cause)

	require.True(t, IsTerminal(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "boom")

	require.False(t, IsTerminal(cause))
	require.False(t, IsTerminal(nil))
}
