package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// =================================================================================
// AUTHENTICATION MIDDLEWARES
// =================================================================================

// Authenticator valida las credenciales de un request.
type Authenticator interface {
	FromRequest(r *http.Request) (*repository.Principal, error)
}

// WithAuthentication intenta autenticar el request y deja el principal en el
// contexto. No rechaza: sin token o con token inválido el request sigue
// anónimo y el guard decide (redirect a login).
func WithAuthentication(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := auth.FromRequest(r)
			if err != nil {
				if r.Header.Get("Authorization") != "" {
					logger.From(r.Context()).Debug("invalid credentials, continuing anonymous", logger.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := identity.WithPrincipal(r.Context(), p)
			if info := getRequestInfo(ctx); info != nil {
				info.userID, info.email = p.ID, p.Email
			}
			ctx = logger.Enrich(ctx, logger.UserID(p.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
