// Package router arma el árbol de rutas HTTP (chi) y sus cadenas de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/mspportal/internal/http"
	adminctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/health"
	portalctrl "github.com/dropDatabas3/mspportal/internal/http/controllers/portal"
	httperrors "github.com/dropDatabas3/mspportal/internal/http/errors"
	mw "github.com/dropDatabas3/mspportal/internal/http/middlewares"
	"github.com/dropDatabas3/mspportal/internal/portal/session"
	"github.com/dropDatabas3/mspportal/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	// Controllers
	Admin  *adminctrl.Controllers
	Portal *portalctrl.Controllers
	Health *healthctrl.Controllers

	// Sessions registro de sesiones de portal.
	Sessions *session.Manager

	// Middlewares
	Authenticator mw.Authenticator
	Origin        mw.OriginResolver
	RateLimiter   rate.Limiter // nil = sin rate limit
	Guard         mw.GuardConfig
	CORSOrigins   []string

	// Metrics handler de /metrics (nil = no se expone).
	Metrics http.Handler
}

// New crea el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Adapt(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	)...)
	r.Use(httpx.WithMetrics)
	r.Use(mw.Adapt(
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		RegisterHealthRoutes(r, d.Health, d.Metrics)
	}
	if d.Portal != nil && d.Sessions != nil {
		RegisterPortalRoutes(r, d)
	}
	if d.Admin != nil {
		RegisterAdminRoutes(r, d)
	}
	return r
}

// rateLimit cadena de rate limit por IP+path compartida por las APIs.
func rateLimit(d Deps) mw.Middleware {
	return mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: d.RateLimiter,
		KeyFunc: mw.IPPathRateKey,
	})
}
