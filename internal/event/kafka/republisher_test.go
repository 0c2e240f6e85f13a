package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/repository"
	"github.com/lgilmartin/serverless-snacks/internal/repository/memory"
)

// recordingPublisher запоминает опубликованные события; publishErrs задаёт
// ошибки для конкретных orderId
type recordingPublisher struct {
	publishErrs map[string]error
	published   []event.OrderCreatedDetail
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, detail event.OrderCreatedDetail) error {
	if err := p.publishErrs[detail.OrderID]; err != nil {
		return err
	}
	p.published = append(p.published, detail)
	return nil
}

func TestRepublisher_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()
	publisher := &recordingPublisher{}

	old := time.Now().Add(-10 * time.Minute)

	// Застрявший NEW заказ - кандидат на переотправку
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "stale-1",
		Item:      "chips",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))
	// Обработанный заказ переотправке не подлежит
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "done-1",
		Item:      "soda",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))
	require.NoError(t, repo.MarkProcessed(ctx, "done-1"))
	// Свежий NEW заказ ещё в пределах окна, трогать рано
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID: "fresh-1",
		Item:    "candy",
		Status:  repository.StatusNew,
	}))

	r := NewRepublisher(zap.NewNop(), repo, publisher, 5*time.Minute, time.Minute, 100)

	require.NoError(t, r.processBatch(ctx))

	require.Len(t, publisher.published, 1)
	require.Equal(t, "stale-1", publisher.published[0].OrderID)
	require.Equal(t, "chips", publisher.published[0].Item)
}

func TestRepublisher_ProcessBatch_ContinuesAfterPublishFailure(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryRepository()

	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "stale-1",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "stale-2",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))

	publisher := &recordingPublisher{
		publishErrs: map[string]error{"stale-1": errors.New("broker unavailable")},
	}

	r := NewRepublisher(zap.NewNop(), repo, publisher, 5*time.Minute, time.Minute, 100)

	// Ошибка публикации одного заказа не прерывает батч
	require.NoError(t, r.processBatch(ctx))
	require.Len(t, publisher.published, 1)
	require.Equal(t, "stale-2", publisher.published[0].OrderID)
}

func TestRepublisher_ProcessBatch_EmptyBatch(t *testing.T) {
	publisher := &recordingPublisher{}
	r := NewRepublisher(zap.NewNop(), memory.NewMemoryRepository(), publisher, 5*time.Minute, time.Minute, 100)

	require.NoError(t, r.processBatch(context.Background()))
	require.Empty(t, publisher.published)
}
