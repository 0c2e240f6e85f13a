package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	platformhealth "github.com/lgilmartin/serverless-snacks/platform/health/http"
)

// NewRouter создаёт и настраивает HTTP роутер для Order Service
// readiness - функция для проверки готовности сервиса (ping БД).
// Если readiness возвращает false, health endpoint вернёт 503 Service Unavailable.
func NewRouter(handler *Handler, readiness func() bool) chi.Router {
	router := chi.NewRouter()
	router.Use(RequestLogger(handler.logger))

	router.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.PostOrders)
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			handler.GetOrdersId(w, r, id)
		})
	})

	router.Get("/health", platformhealth.Handler(readiness))

	return router
}
