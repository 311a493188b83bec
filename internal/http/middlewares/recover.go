package middlewares

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dropDatabas3/keyresolver/internal/observability/logger"
)

// WithRecover captura panics y responde 500 en vez de tirar el proceso.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered", zap.Any("panic", rec))
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":      "internal_error",
						"request_id": GetRequestID(r.Context()),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
