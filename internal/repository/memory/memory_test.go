package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lgilmartin/serverless-snacks/internal/repository"
)

func TestMemoryRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	order := repository.Order{
		OrderID: "order-123",
		Item:    "chips",
		Status:  repository.StatusNew,
	}

	require.NoError(t, repo.Create(ctx, order))

	// Повторная вставка того же ID отклоняется
	err := repo.Create(ctx, order)
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "order-123")
	require.NoError(t, err)
	require.Equal(t, "chips", got.Item)
	require.Equal(t, repository.StatusNew, got.Status)
	require.False(t, got.CreatedAt.IsZero())
}

func TestMemoryRepository_Create_Concurrent(t *testing.T) {
	// Из конкурирующих вставок одного orderId ровно одна проходит
	ctx := context.Background()
	repo := NewMemoryRepository()

	const goroutines = 20
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Create(ctx, repository.Order{
				OrderID: "order-123",
				Item:    "chips",
				Status:  repository.StatusNew,
			})
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, repository.ErrAlreadyExists)
			rejected++
		}
	}

	require.Equal(t, 1, succeeded)
	require.Equal(t, goroutines-1, rejected)
}

func TestMemoryRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	// Несуществующий заказ нельзя обработать
	err := repo.MarkProcessed(ctx, "order-123")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID: "order-123",
		Item:    "chips",
		Status:  repository.StatusNew,
	}))

	require.NoError(t, repo.MarkProcessed(ctx, "order-123"))

	got, err := repo.GetByID(ctx, "order-123")
	require.NoError(t, err)
	require.Equal(t, repository.StatusProcessed, got.Status)

	// Повторная обработка - success, статус остаётся PROCESSED
	require.NoError(t, repo.MarkProcessed(ctx, "order-123"))

	got, err = repo.GetByID(ctx, "order-123")
	require.NoError(t, err)
	require.Equal(t, repository.StatusProcessed, got.Status)
}

func TestMemoryRepository_GetByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.GetByID(context.Background(), "unknown")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryRepository_ListStaleNew(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	old := time.Now().Add(-10 * time.Minute)

	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "stale-new",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "stale-processed",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))
	require.NoError(t, repo.MarkProcessed(ctx, "stale-processed"))
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID: "fresh-new",
		Status:  repository.StatusNew,
	}))

	orders, err := repo.ListStaleNew(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "stale-new", orders[0].OrderID)

	// limit соблюдается
	require.NoError(t, repo.Create(ctx, repository.Order{
		OrderID:   "stale-new-2",
		Status:    repository.StatusNew,
		CreatedAt: old,
	}))

	orders, err = repo.ListStaleNew(ctx, 5*time.Minute, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}
