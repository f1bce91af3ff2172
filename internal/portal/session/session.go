// Package session implementa la fachada de sesión del portal: dueña única del
// estado derivado (Detection + Config) de un par (origen, principal), con
// refresh explícito y descarte de resultados obsoletos.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/metrics"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/portal"
)

var (
	// ErrSuperseded el refresh fue reemplazado por uno más nuevo; su resultado se descartó.
	ErrSuperseded = errors.New("portal session: refresh superseded")

	// ErrClosed la sesión fue cerrada.
	ErrClosed = errors.New("portal session: closed")
)

// Resolver es la parte del Tenant Resolver que usa la sesión.
type Resolver interface {
	ResolveFromOrigin(ctx context.Context, hostname string) (*repository.TenantResolution, error)
}

// State snapshot inmutable del estado publicado.
type State struct {
	Origin      string                `json:"origin"`
	Principal   *repository.Principal `json:"principal,omitempty"`
	Detection   *portal.Detection     `json:"detection,omitempty"`
	Config      *portal.Config        `json:"config,omitempty"`
	Loading     bool                  `json:"loading"`
	Error       string                `json:"error,omitempty"`
	Generation  uint64                `json:"generation"`
	RefreshedAt time.Time             `json:"refreshed_at"`
}

// Session es la fachada. Único escritor del estado derivado; muchos lectores.
type Session struct {
	resolver Resolver
	policy   *portal.Policy

	mu        sync.RWMutex
	origin    string
	principal *repository.Principal
	gen       uint64 // último refresh iniciado
	cancel    context.CancelFunc
	closed    bool
	stale     bool
	staleMark uint64 // gen vigente al marcar stale

	// estado publicado
	detection   *portal.Detection
	config      *portal.Config
	tenantID    string
	loading     bool
	lastErr     string
	committed   uint64
	refreshedAt time.Time
}

// New crea una sesión sin estado publicado (loading=true hasta el primer
// refresh exitoso). Llamar Refresh para poblarla.
func New(resolver Resolver, policy *portal.Policy, origin string, principal *repository.Principal) *Session {
	return &Session{
		resolver:  resolver,
		policy:    policy,
		origin:    origin,
		principal: principal,
		loading:   true,
	}
}

// Refresh re-ejecuta resolver y evaluador con las entradas actuales.
// Un refresh en vuelo se cancela; si aun así termina después del nuevo,
// su resultado se descarta y retorna ErrSuperseded.
//
// Ante error se conserva la última config válida y se publica Error.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loading = true
	origin, principal := s.origin, s.principal
	s.mu.Unlock()
	defer cancel()

	log := logger.From(ctx).With(logger.Origin(origin), logger.Generation(gen))

	// resolver estrictamente antes que el evaluador
	tenant, err := s.resolver.ResolveFromOrigin(rctx, origin)
	if err != nil {
		if rctx.Err() != nil && ctx.Err() == nil {
			// cancelado por un refresh más nuevo
			return s.discard(gen)
		}
		return s.fail(gen, err, log)
	}

	det, cfg, err := s.evaluate(tenant, principal, origin)
	if err != nil {
		return s.fail(gen, err, log)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if gen != s.gen {
		metrics.SessionRefreshes.WithLabelValues("superseded").Inc()
		return ErrSuperseded
	}
	s.detection, s.config = &det, &cfg
	s.tenantID = ""
	if tenant != nil {
		s.tenantID = tenant.Domain.ID
	}
	s.loading = false
	if gen > s.staleMark {
		// sólo un refresh iniciado después de MarkStale limpia la marca
		s.stale = false
	}
	s.committed = gen
	s.refreshedAt = time.Now()
	s.lastErr = ""
	if tenant != nil && tenant.ConfigErr != nil {
		// ConfigLoadFailure: config por defecto publicada + aviso
		s.lastErr = tenant.ConfigErr.Error()
	}
	metrics.SessionRefreshes.WithLabelValues("committed").Inc()
	log.Debug("portal session refreshed", logger.PortalType(string(det.PortalType)))
	return nil
}

// evaluate corre el evaluador; un panic se convierte en error para no
// tirar abajo al caller.
func (s *Session) evaluate(tenant *repository.TenantResolution, principal *repository.Principal, origin string) (det portal.Detection, cfg portal.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("portal evaluation panic: %v", r)
		}
	}()
	det = s.policy.Evaluate(portal.EvaluationInput{Tenant: tenant, Principal: principal, Hostname: origin})
	cfg = s.policy.BuildConfig(det, tenant)
	return det, cfg, nil
}

func (s *Session) discard(gen uint64) error {
	metrics.SessionRefreshes.WithLabelValues("superseded").Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if gen == s.gen {
		s.loading = false
	}
	return ErrSuperseded
}

func (s *Session) fail(gen uint64, err error, log *zap.Logger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		metrics.SessionRefreshes.WithLabelValues("superseded").Inc()
		return ErrSuperseded
	}
	metrics.SessionRefreshes.WithLabelValues("failed").Inc()
	s.loading = false
	s.lastErr = err.Error()
	log.Warn("portal session refresh failed, keeping last config", logger.Err(err))
	return err
}

// SetOrigin cambia el origen y refresca si cambió.
func (s *Session) SetOrigin(ctx context.Context, origin string) error {
	s.mu.Lock()
	changed := s.origin != origin
	s.origin = origin
	s.mu.Unlock()
	if !changed {
		return nil
	}
	return s.Refresh(ctx)
}

// SetPrincipal cambia el principal y refresca si cambió.
func (s *Session) SetPrincipal(ctx context.Context, p *repository.Principal) error {
	s.mu.Lock()
	changed := !s.principal.SameAs(p)
	s.principal = p
	s.mu.Unlock()
	if !changed {
		return nil
	}
	return s.Refresh(ctx)
}

// MarkStale fuerza un refresh en el próximo acceso vía Manager.
func (s *Session) MarkStale() {
	s.mu.Lock()
	s.stale = true
	s.staleMark = s.gen
	s.mu.Unlock()
}

// NeedsRefresh indica si la sesión nunca se publicó, está marcada o es más vieja que maxAge.
func (s *Session) NeedsRefresh(maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil || s.stale {
		return true
	}
	return maxAge > 0 && time.Since(s.refreshedAt) > maxAge
}

// Closed indica si la sesión fue cerrada.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close cancela el refresh en vuelo y rechaza commits futuros.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

// ─── Lecturas ───

// PortalConfig retorna la config publicada; ok=false si nunca se publicó.
func (s *Session) PortalConfig() (portal.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return portal.Config{}, false
	}
	cfg := *s.config
	cfg.AllowedModules = modules.Clone(cfg.AllowedModules)
	return cfg, true
}

// PortalDetection retorna la detección publicada; ok=false si nunca se publicó.
func (s *Session) PortalDetection() (portal.Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detection == nil {
		return portal.Detection{}, false
	}
	det := *s.detection
	det.UserAccess.AccessibleModules = modules.Clone(det.UserAccess.AccessibleModules)
	return det, true
}

// CanAccessModule membership test contra los módulos publicados.
func (s *Session) CanAccessModule(id string) bool {
	cfg, ok := s.PortalConfig()
	return ok && portal.CanAccess(cfg, id)
}

// ModulePermission nivel de acceso publicado para un módulo.
func (s *Session) ModulePermission(id string) types.Permission {
	cfg, ok := s.PortalConfig()
	if !ok {
		return types.PermissionNone
	}
	return portal.Permission(cfg, id)
}

// TenantDomainID del tenant publicado ("" si no hay).
func (s *Session) TenantDomainID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}

// Principal retorna el principal actual.
func (s *Session) Principal() *repository.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// State snapshot completo.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Origin:      s.origin,
		Principal:   s.principal,
		Loading:     s.loading,
		Error:       s.lastErr,
		Generation:  s.committed,
		RefreshedAt: s.refreshedAt,
	}
	if s.detection != nil {
		det := *s.detection
		det.UserAccess.AccessibleModules = modules.Clone(det.UserAccess.AccessibleModules)
		cfg := *s.config
		cfg.AllowedModules = modules.Clone(cfg.AllowedModules)
		st.Detection, st.Config = &det, &cfg
	}
	return st
}

// SwitchToMSPPortal retorna el origen canónico del portal MSP.
// ok=false si el principal no es MSP admin o no hay origen configurado.
func (s *Session) SwitchToMSPPortal() (string, bool) {
	s.mu.RLock()
	p := s.principal
	s.mu.RUnlock()
	if p == nil || !p.IsMSPAdmin || s.policy.MSPOrigin() == "" {
		return "", false
	}
	return s.policy.MSPOrigin(), true
}
