package http

import (
	"encoding/json"
	"net/http"
)

type status struct {
	Status string `json:"status"`
}

// Handler возвращает HTTP handler для health check endpoint.
// readiness == nil означает, что сервису нечего проверять (всегда готов);
// иначе false от readiness даёт 503 Service Unavailable.
func Handler(readiness func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if readiness != nil && !readiness() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(status{Status: "not ready"})
			return
		}

		json.NewEncoder(w).Encode(status{Status: "ok"})
	}
}
