package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/mspportal/internal/http/middlewares"
	"github.com/dropDatabas3/mspportal/internal/portal/guard"
)

// RegisterAdminRoutes registra /v2/admin. Todo el árbol exige MSP admin.
func RegisterAdminRoutes(r chi.Router, d Deps) {
	td := d.Admin.TenantDomains
	orgs := d.Admin.Organizations

	r.Route("/v2/admin", func(r chi.Router) {
		r.Use(mw.Adapt(
			mw.WithNoStore(),
			mw.WithAuthentication(d.Authenticator),
			rateLimit(d),
			mw.WithGuard(guard.RequireMSPAdmin, d.Guard),
		)...)

		r.Route("/tenant-domains", func(r chi.Router) {
			r.Get("/", td.List)
			r.Post("/", td.Create)
			r.Get("/resolve", td.Resolve)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", td.Get)
				r.Put("/", td.Update)
				r.Patch("/", td.Update)
				r.Delete("/", td.Delete)
				r.Get("/access-config", td.GetAccessConfig)
				r.Put("/access-config", td.PutAccessConfig)
			})
		})

		r.Get("/organizations", orgs.List)
		r.Post("/organizations", orgs.Create)
	})
}
