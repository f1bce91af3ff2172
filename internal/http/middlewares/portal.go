package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/portal/session"
)

// WithPortalSession obtiene (o crea y refresca) la sesión de portal para
// (origen, principal) y la deja en el contexto. Debe ir después de WithOrigin
// y WithAuthentication.
//
// Un refresh fallido no corta el request: la sesión conserva la última config
// válida y publica el error en su State.
func WithPortalSession(mgr *session.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s, err := mgr.Get(ctx, GetOrigin(ctx), GetPrincipal(ctx))
			if s == nil {
				// el request terminó esperando el refresh compartido
				logger.From(ctx).Debug("portal session wait aborted", logger.Err(err))
				return
			}
			if err != nil {
				logger.From(ctx).Warn("portal session refresh failed", logger.Err(err))
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, s)))
		})
	}
}
