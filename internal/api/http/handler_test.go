package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/event"
	"github.com/lgilmartin/serverless-snacks/internal/repository"
	"github.com/lgilmartin/serverless-snacks/internal/repository/memory"
	"github.com/lgilmartin/serverless-snacks/internal/service"
)

// stubPublisher реализует service.OrderEventPublisher для тестов
type stubPublisher struct {
	err       error
	published []event.OrderCreatedDetail
}

func (p *stubPublisher) PublishOrderCreated(ctx context.Context, detail event.OrderCreatedDetail) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, detail)
	return nil
}

// failingRepo реализует repository.OrderRepository и всегда возвращает ошибку
type failingRepo struct{}

func (failingRepo) Create(ctx context.Context, order repository.Order) error {
	return errors.New("connection refused")
}

func (failingRepo) MarkProcessed(ctx context.Context, orderID string) error {
	return errors.New("connection refused")
}

func (failingRepo) GetByID(ctx context.Context, orderID string) (repository.Order, error) {
	return repository.Order{}, errors.New("connection refused")
}

func (failingRepo) ListStaleNew(ctx context.Context, olderThan time.Duration, limit int) ([]repository.Order, error) {
	return nil, errors.New("connection refused")
}

func newTestRouter(repo repository.OrderRepository, publisher service.OrderEventPublisher) http.Handler {
	logger := zap.NewNop()
	creator := service.NewCreatorService(logger, repo, publisher)
	handler := NewHandler(logger, creator)
	return NewRouter(handler, func() bool { return true })
}

func TestPostOrders(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repo           repository.OrderRepository
		publisher      service.OrderEventPublisher
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "success: order accepted",
			body:           `{"orderId": "order-123", "item": "chips"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "400: invalid JSON",
			body:           `{"orderId": `,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON in request body",
		},
		{
			name:           "400: missing orderId",
			body:           `{"item": "chips"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing 'orderId' in request",
		},
		{
			name:           "500: storage failure",
			body:           `{"orderId": "order-123"}`,
			repo:           failingRepo{},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
		{
			name:           "502: publish failure",
			body:           `{"orderId": "order-123"}`,
			publisher:      &stubPublisher{err: errors.New("broker unavailable")},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Failed to publish event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := tt.repo
			if repo == nil {
				repo = memory.NewMemoryRepository()
			}
			publisher := tt.publisher
			if publisher == nil {
				publisher = &stubPublisher{}
			}
			router := newTestRouter(repo, publisher)

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.expectedStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.expectedError != "" {
				var errResp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
				require.Equal(t, tt.expectedError, errResp.Error)
				return
			}

			var resp OrderResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, "order-123", resp.OrderID)
			require.Equal(t, string(repository.StatusNew), resp.Status)
		})
	}
}

func TestPostOrders_Duplicate(t *testing.T) {
	repo := memory.NewMemoryRepository()
	publisher := &stubPublisher{}
	router := newTestRouter(repo, publisher)

	body := `{"orderId": "order-123", "item": "chips"}`

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Повторный запрос с тем же orderId: 409 и никакой новой публикации
	req = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "Order already exists", errResp.Error)
	require.Len(t, publisher.published, 1)
}

func TestGetOrdersId(t *testing.T) {
	repo := memory.NewMemoryRepository()
	router := newTestRouter(repo, &stubPublisher{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"orderId": "order-123", "item": "soda"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/order-123", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp OrderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "order-123", resp.OrderID)
		require.Equal(t, string(repository.StatusNew), resp.Status)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/unknown", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		require.Equal(t, "Order not found", errResp.Error)
	})
}

func TestHealth(t *testing.T) {
	router := newTestRouter(memory.NewMemoryRepository(), &stubPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
