package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/health"
)

// RegisterHealthRoutes registra /healthz, /readyz y /metrics.
// Son públicos: sin auth, sin tenant, sin rate limit.
func RegisterHealthRoutes(r chi.Router, c *ctrl.Controllers, metrics http.Handler) {
	r.Get("/healthz", c.Health.Healthz)
	r.Get("/readyz", c.Health.Readyz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
}
