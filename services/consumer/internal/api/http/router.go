package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/orderpipe/platform/health/http"
	platformobservability "github.com/shestoi/orderpipe/platform/observability"
)

// NewRouter создаёт admin роутер consumer.
// readiness проверяет PostgreSQL; metrics - обработчик Prometheus (nil отключает /metrics).
func NewRouter(handler *Handler, readiness platformhealth.ReadinessFunc, metrics http.Handler, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	router.Get("/health", platformhealth.Handler(readiness))
	if metrics != nil {
		router.Method(http.MethodGet, "/metrics", metrics)
	}

	router.Group(func(r chi.Router) {
		if logger != nil {
			r.Use(platformobservability.HTTPMiddleware("consumer", logger))
		}
		r.Get("/orders/{id}/payment-status", func(w http.ResponseWriter, r *http.Request) {
			handler.GetPaymentStatus(w, r, chi.URLParam(r, "id"))
		})
	})

	return router
}
