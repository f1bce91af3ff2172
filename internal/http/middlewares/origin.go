package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/mspportal/internal/util"
)

// =================================================================================
// ORIGIN RESOLVER
// =================================================================================

// OriginResolver obtiene el hostname de origen de un request ("" si no aplica).
type OriginResolver func(r *http.Request) string

// HeaderOriginResolver usa un header. Para X-Forwarded-Host toma el primer valor.
func HeaderOriginResolver(headerName string) OriginResolver {
	return func(r *http.Request) string {
		v := r.Header.Get(headerName)
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}
}

// HostOriginResolver usa r.Host.
func HostOriginResolver() OriginResolver {
	return func(r *http.Request) string { return r.Host }
}

// QueryOriginResolver usa un query parameter. Sólo para desarrollo local,
// donde todos los portales comparten localhost.
func QueryOriginResolver(paramName string) OriginResolver {
	if paramName == "" {
		paramName = "origin"
	}
	return func(r *http.Request) string {
		return strings.TrimSpace(r.URL.Query().Get(paramName))
	}
}

// ChainOriginResolvers retorna el primer resultado no vacío.
func ChainOriginResolvers(resolvers ...OriginResolver) OriginResolver {
	return func(r *http.Request) string {
		for _, resolve := range resolvers {
			if v := resolve(r); v != "" {
				return v
			}
		}
		return ""
	}
}

// OriginConfig configura la cadena por defecto.
type OriginConfig struct {
	// TrustForwardedHost usar X-Forwarded-Host (sólo detrás de un proxy confiable).
	TrustForwardedHost bool
	// AllowQueryOverride acepta ?origin= (dev).
	AllowQueryOverride bool
}

// NewOriginResolver arma la cadena: [query] -> [X-Forwarded-Host] -> Host.
func NewOriginResolver(cfg OriginConfig) OriginResolver {
	var chain []OriginResolver
	if cfg.AllowQueryOverride {
		chain = append(chain, QueryOriginResolver("origin"))
	}
	if cfg.TrustForwardedHost {
		chain = append(chain, HeaderOriginResolver("X-Forwarded-Host"))
	}
	chain = append(chain, HostOriginResolver())
	return ChainOriginResolvers(chain...)
}

// WithOrigin resuelve y normaliza el origen del request y lo deja en el contexto.
// La lógica de negocio nunca lee headers: recibe el origen como entrada explícita.
func WithOrigin(resolve OriginResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := util.NormalizeHost(resolve(r))
			if info := getRequestInfo(r.Context()); info != nil {
				info.origin = origin
			}
			next.ServeHTTP(w, r.WithContext(WithOriginValue(r.Context(), origin)))
		})
	}
}
