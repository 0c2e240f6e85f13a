package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lgilmartin/serverless-snacks/internal/repository"
	"github.com/lgilmartin/serverless-snacks/internal/service"
)

// Handler содержит HTTP-обработчики для Order Service
// Зависит от service слоя, но не знает о деталях реализации хранилища и транспорта
type Handler struct {
	logger  *zap.Logger
	creator *service.CreatorService
}

// NewHandler создаёт новый HTTP handler
func NewHandler(logger *zap.Logger, creator *service.CreatorService) *Handler {
	return &Handler{
		logger:  logger,
		creator: creator,
	}
}

// OrderRequest представляет HTTP запрос на создание заказа
type OrderRequest struct {
	OrderID string `json:"orderId"`
	Item    string `json:"item"`
}

// OrderResponse представляет HTTP ответ на создание заказа
type OrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// ErrorResponse представляет HTTP ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// PostOrders обрабатывает POST /orders - создание нового заказа
// Маппинг ошибок service слоя на статусы:
//
//	400 - невалидный JSON или отсутствующий orderId
//	409 - заказ с таким orderId уже существует
//	500 - ошибка хранилища
//	502 - заказ записан, но событие опубликовать не удалось
func (h *Handler) PostOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		h.logger.Error("invalid JSON in request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if reqBody.OrderID == "" {
		h.logger.Error("missing orderId in request")
		writeError(w, http.StatusBadRequest, "Missing 'orderId' in request")
		return
	}

	result, err := h.creator.CreateOrder(ctx, service.CreateOrderInput{
		OrderID: reqBody.OrderID,
		Item:    reqBody.Item,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "Order already exists")
		case errors.Is(err, service.ErrPublishFailed):
			writeError(w, http.StatusBadGateway, "Failed to publish event")
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	resp := OrderResponse{
		OrderID: result.OrderID,
		Status:  string(result.Status),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// GetOrdersId обрабатывает GET /orders/{id} - получение заказа по ID
func (h *Handler) GetOrdersId(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	order, err := h.creator.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err), zap.String("order_id", id))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := OrderResponse{
		OrderID: order.OrderID,
		Status:  string(order.Status),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError пишет JSON ответ с ошибкой и указанным статусом
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
