package portal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	dto "github.com/dropDatabas3/mspportal/internal/http/dto/portal"
	httperrors "github.com/dropDatabas3/mspportal/internal/http/errors"
	"github.com/dropDatabas3/mspportal/internal/http/helpers"
	"github.com/dropDatabas3/mspportal/internal/http/middlewares"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/portal/guard"
	"github.com/dropDatabas3/mspportal/internal/portal/session"
)

// PortalController handles /v2/portal routes. Todas las lecturas salen de la
// sesión de portal que WithPortalSession dejó en el contexto.
type PortalController struct {
	guardCfg middlewares.GuardConfig
}

// NewPortalController creates a new portal controller.
func NewPortalController(guardCfg middlewares.GuardConfig) *PortalController {
	return &PortalController{guardCfg: guardCfg}
}

// sessionState retorna el snapshot publicado o escribe la respuesta de
// "todavía no hay estado" y retorna ok=false.
func sessionState(w http.ResponseWriter, r *http.Request) (*session.Session, session.State, bool) {
	s := middlewares.GetSession(r.Context())
	if s == nil {
		httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(errors.New("portal session missing from context")))
		return nil, session.State{}, false
	}
	st := s.State()
	if st.Config != nil {
		return s, st, true
	}
	if st.Loading {
		w.Header().Set("Retry-After", "1")
		middlewares.WriteGuard(w, http.StatusServiceUnavailable, dto.GuardResponse{State: string(guard.Loading)})
		return nil, st, false
	}
	// primer refresh fallido: no hay última config válida que servir
	httperrors.WriteError(w, httperrors.ErrResolutionFailed.WithDetail(st.Error))
	return nil, st, false
}

// Config handles GET /v2/portal/config
func (c *PortalController) Config(w http.ResponseWriter, r *http.Request) {
	_, st, ok := sessionState(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.ConfigResponse{
		Config:     *st.Config,
		Loading:    st.Loading,
		Error:      st.Error,
		Generation: st.Generation,
	})
}

// Detection handles GET /v2/portal/detection
func (c *PortalController) Detection(w http.ResponseWriter, r *http.Request) {
	_, st, ok := sessionState(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.DetectionResponse{
		Detection:  *st.Detection,
		Origin:     st.Origin,
		Generation: st.Generation,
	})
}

// ModuleAccess handles GET /v2/portal/modules/{id}
func (c *PortalController) ModuleAccess(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "id")))
	if !modules.IsKnown(id) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown module "+id))
		return
	}
	s, _, ok := sessionState(w, r)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ModuleAccessResponse{
		Module:     id,
		Allowed:    s.CanAccessModule(id),
		Permission: s.ModulePermission(id),
	})
}

// Refresh handles POST /v2/portal/refresh. Fuerza re-resolver y re-evaluar;
// ante error se conserva la última config y el error viaja en la respuesta.
func (c *PortalController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Portal.Refresh"))

	s := middlewares.GetSession(ctx)
	if s == nil {
		httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(errors.New("portal session missing from context")))
		return
	}
	err := s.Refresh(ctx)
	switch {
	case errors.Is(err, session.ErrSuperseded):
		// otro refresh más nuevo ya publica su resultado
	case errors.Is(err, session.ErrClosed):
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("portal session closed"))
		return
	case err != nil:
		log.Warn("refresh failed", logger.Err(err))
	}

	st := s.State()
	helpers.WriteJSON(w, http.StatusOK, dto.RefreshResponse{
		Generation:  st.Generation,
		RefreshedAt: st.RefreshedAt,
		Error:       st.Error,
	})
}

// SwitchToMSP handles POST /v2/portal/switch-msp. Navegadores reciben un 302
// al portal MSP; clientes JSON reciben la Location.
func (c *PortalController) SwitchToMSP(w http.ResponseWriter, r *http.Request) {
	s := middlewares.GetSession(r.Context())
	if s == nil {
		httperrors.WriteError(w, httperrors.ErrAccessDenied)
		return
	}
	target, ok := s.SwitchToMSPPortal()
	if !ok {
		httperrors.WriteError(w, httperrors.ErrAccessDenied.WithDetail("msp admin access required"))
		return
	}
	logger.From(r.Context()).Info("switching to msp portal", logger.Component("portal"), logger.String("target", target))

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.SwitchResponse{Location: target})
}

// Guard handles GET /v2/portal/guard?require=authenticated|msp_admin|module:<id>
// Reporta la decisión del guard sin redirigir: el front-end la usa para
// elegir qué vista mostrar.
func (c *PortalController) Guard(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequirement(r.URL.Query().Get("require"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail(err.Error()))
		return
	}

	res := dto.GuardResponse{State: string(guard.Decide(middlewares.GuardInput(r, req)))}
	switch guard.Outcome(res.State) {
	case guard.RedirectLogin:
		res.LoginURL = middlewares.LoginURL(c.guardCfg.LoginURL, r)
	case guard.AccessDenied:
		res.Message = middlewares.DeniedMessage
		res.LoginURL = middlewares.LoginURL(c.guardCfg.LoginURL, r)
	}
	middlewares.WriteGuard(w, http.StatusOK, res)
}

func parseRequirement(v string) (guard.Requirement, error) {
	switch v = strings.TrimSpace(v); {
	case v == "" || v == "authenticated":
		return guard.RequireAuthenticated, nil
	case v == "msp_admin":
		return guard.RequireMSPAdmin, nil
	case strings.HasPrefix(v, "module:"):
		id := strings.ToLower(strings.TrimPrefix(v, "module:"))
		if !modules.IsKnown(id) {
			return guard.Requirement{}, errors.New("unknown module " + id)
		}
		return guard.RequireModule(id), nil
	}
	return guard.Requirement{}, errors.New("require must be authenticated, msp_admin or module:<id>")
}
