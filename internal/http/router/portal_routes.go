package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/mspportal/internal/http/middlewares"
	"github.com/dropDatabas3/mspportal/internal/portal/guard"
)

// RegisterPortalRoutes registra /v2/portal.
//
// config, detection y guard son públicos (la pantalla de login también
// necesita branding); el resto exige sesión.
func RegisterPortalRoutes(r chi.Router, d Deps) {
	c := d.Portal.Portal

	r.Route("/v2/portal", func(r chi.Router) {
		r.Use(mw.Adapt(
			mw.WithNoStore(),
			mw.WithOrigin(d.Origin),
			mw.WithAuthentication(d.Authenticator),
			rateLimit(d),
			mw.WithPortalSession(d.Sessions),
		)...)

		r.Get("/config", c.Config)
		r.Get("/detection", c.Detection)
		r.Get("/guard", c.Guard)

		r.Group(func(r chi.Router) {
			r.Use(mw.WithGuard(guard.RequireAuthenticated, d.Guard))

			r.Get("/modules/{id}", c.ModuleAccess)
			r.Post("/refresh", c.Refresh)
			r.Post("/switch-msp", c.SwitchToMSP)
		})
	})
}
