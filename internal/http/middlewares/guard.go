package middlewares

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	dto "github.com/dropDatabas3/mspportal/internal/http/dto/portal"
	"github.com/dropDatabas3/mspportal/internal/portal/guard"
)

// GuardConfig configura las respuestas del guard.
type GuardConfig struct {
	// LoginURL punto de entrada del login del identity provider.
	LoginURL string
}

// GuardInput arma la entrada del guard a partir del request: principal del
// contexto, y loading/módulos de la sesión de portal si existe.
// loading sólo es true mientras no hay ningún estado publicado.
func GuardInput(r *http.Request, req guard.Requirement) guard.Input {
	in := guard.Input{Principal: GetPrincipal(r.Context()), Requirement: req}
	if s := GetSession(r.Context()); s != nil {
		st := s.State()
		in.Loading = st.Loading && st.Config == nil
		if st.Config != nil {
			in.AccessibleModules = st.Config.AllowedModules
		}
	}
	return in
}

// WithGuard protege el árbol de rutas con el requisito dado.
//
//	loading        -> 503 + Retry-After, placeholder neutro
//	redirect_login -> 302 al login (navegador) o 401 JSON con login_url
//	access_denied  -> 403 con link a re-autenticarse, sin redirect
//	render         -> next
func WithGuard(req guard.Requirement, cfg GuardConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch guard.Decide(GuardInput(r, req)) {
			case guard.Render:
				next.ServeHTTP(w, r)
			case guard.Loading:
				w.Header().Set("Retry-After", "1")
				WriteGuard(w, http.StatusServiceUnavailable, dto.GuardResponse{State: string(guard.Loading)})
			case guard.RedirectLogin:
				login := LoginURL(cfg.LoginURL, r)
				if wantsHTML(r) {
					http.Redirect(w, r, login, http.StatusFound)
					return
				}
				WriteGuard(w, http.StatusUnauthorized, dto.GuardResponse{
					State:    string(guard.RedirectLogin),
					Code:     "UNAUTHORIZED",
					Message:  "Se requiere autenticación.",
					LoginURL: login,
				})
			case guard.AccessDenied:
				login := LoginURL(cfg.LoginURL, r)
				if wantsHTML(r) {
					writeDeniedPage(w, login)
					return
				}
				WriteGuard(w, http.StatusForbidden, dto.GuardResponse{
					State:    string(guard.AccessDenied),
					Code:     "ACCESS_DENIED",
					Message:  DeniedMessage,
					LoginURL: login,
				})
			}
		})
	}
}

// DeniedMessage texto de la vista de acceso denegado.
const DeniedMessage = "Tu cuenta no tiene acceso a esta sección. Iniciá sesión con una cuenta autorizada."

// LoginURL agrega ?redirect=<url actual> al login configurado.
func LoginURL(base string, r *http.Request) string {
	if base == "" {
		base = "/login"
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("redirect", r.URL.RequestURI())
	u.RawQuery = q.Encode()
	return u.String()
}

// wantsHTML true si el cliente es un navegador navegando (no fetch/XHR JSON).
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// WriteGuard escribe un estado del guard como JSON.
func WriteGuard(w http.ResponseWriter, status int, body dto.GuardResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var deniedPage = template.Must(template.New("denied").Parse(`<!doctype html>
<html lang="es"><head><meta charset="utf-8"><title>Acceso denegado</title></head>
<body style="font-family:sans-serif;max-width:32rem;margin:4rem auto">
<h1>Acceso denegado</h1>
<p>{{.Message}}</p>
<p><a href="{{.LoginURL}}">Iniciar sesión con otra cuenta</a></p>
</body></html>`))

func writeDeniedPage(w http.ResponseWriter, login string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusForbidden)
	_ = deniedPage.Execute(w, struct{ Message, LoginURL string }{DeniedMessage, login})
}
