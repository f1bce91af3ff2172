package session

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/metrics"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/portal"
	"github.com/dropDatabas3/mspportal/internal/util"
)

// ManagerConfig parámetros del Manager.
type ManagerConfig struct {
	// MaxAge edad máxima del estado publicado antes de refrescar en el próximo Get.
	MaxAge time.Duration
	// IdleTTL tiempo sin accesos tras el cual la sesión se cierra y descarta.
	IdleTTL time.Duration
	// MaxSessions tope de sesiones retenidas; al alcanzarlo las nuevas se
	// sirven sin retener. <= 0 usa DefaultMaxSessions.
	MaxSessions int
}

// DefaultMaxSessions tope por defecto de sesiones retenidas.
const DefaultMaxSessions = 10000

// anonymousKey es la clave de repository.Principal sin usuario.
const anonymousKey = "anon"

// Manager registro de sesiones por (principal, origen). Lo crea y posee
// la raíz de composición; los handlers HTTP sólo lo leen.
//
// Los refresh de una misma sesión se colapsan con singleflight: un único
// fetch sirve a todos los requests concurrentes y corre desacoplado del
// contexto de cada uno. La cancelación entre refreshes queda reservada a
// los cambios de entrada (SetOrigin / SetPrincipal).
type Manager struct {
	resolver    Resolver
	policy      *portal.Policy
	maxAge      time.Duration
	maxSessions int

	mu       sync.Mutex // serializa alta y retención
	sessions *gocache.Cache
	flights  singleflight.Group
}

// NewManager crea el Manager.
func NewManager(resolver Resolver, policy *portal.Policy, cfg ManagerConfig) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	c := gocache.New(cfg.IdleTTL, cfg.IdleTTL/2)
	c.OnEvicted(func(_ string, v any) {
		if s, ok := v.(*Session); ok {
			s.Close()
			metrics.ActiveSessions.Dec()
		}
	})
	return &Manager{
		resolver:    resolver,
		policy:      policy,
		maxAge:      cfg.MaxAge,
		maxSessions: cfg.MaxSessions,
		sessions:    c,
	}
}

// Policy expone la política usada por las sesiones.
func (m *Manager) Policy() *portal.Policy { return m.policy }

func sessionKey(origin string, p *repository.Principal) string {
	return p.Key() + "@" + util.NormalizeHost(origin)
}

// Get retorna la sesión de (origin, principal), creándola si no existe y
// refrescándola si cambió el principal o el estado es viejo.
// Un ErrSuperseded no es error para el caller: otra request ya refrescó.
//
// Si ctx termina mientras espera el refresh compartido retorna (nil, ctx.Err());
// el refresh sigue para los demás.
func (m *Manager) Get(ctx context.Context, origin string, principal *repository.Principal) (*Session, error) {
	key := sessionKey(origin, principal)
	if s := m.lookup(key); s != nil && s.Principal().SameAs(principal) && !s.NeedsRefresh(m.maxAge) {
		return s, nil
	}

	ch := m.flights.DoChan(key, func() (any, error) {
		return m.load(context.WithoutCancel(ctx), key, origin, principal)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		s, _ := res.Val.(*Session)
		return s, res.Err
	}
}

// lookup retorna la sesión retenida (extendiendo su TTL) o nil.
func (m *Manager) lookup(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sessions.Get(key)
	if !ok {
		return nil
	}
	s := v.(*Session)
	if s.Closed() {
		return nil
	}
	// re-set extiende el TTL de inactividad
	m.sessions.SetDefault(key, s)
	return s
}

// load corre dentro del singleflight de key: crea la sesión si hace falta y
// refresca sólo si sigue haciendo falta (un flight anterior pudo resolverlo).
func (m *Manager) load(ctx context.Context, key, origin string, principal *repository.Principal) (*Session, error) {
	s := m.lookup(key)
	var err error
	switch {
	case s == nil:
		s = New(m.resolver, m.policy, util.NormalizeHost(origin), principal)
		err = s.Refresh(ctx)
		m.retain(ctx, key, s)
	case !s.Principal().SameAs(principal):
		err = s.SetPrincipal(ctx, principal)
	case s.NeedsRefresh(m.maxAge):
		err = s.Refresh(ctx)
	}
	if errors.Is(err, ErrSuperseded) {
		err = nil
	}
	return s, err
}

// retain guarda la sesión nueva salvo que sea anónima sin tenant (cualquier
// Host arbitrario crearía una) o que se haya alcanzado MaxSessions.
func (m *Manager) retain(ctx context.Context, key string, s *Session) {
	if s.Principal().Key() == anonymousKey && s.TenantDomainID() == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions.Get(key); ok {
		m.sessions.SetDefault(key, s)
		return
	}
	if m.sessions.ItemCount() >= m.maxSessions {
		logger.From(ctx).Warn("portal session limit reached, serving without retaining",
			logger.Count(m.maxSessions))
		return
	}
	m.sessions.SetDefault(key, s)
	metrics.ActiveSessions.Inc()
}

// Invalidate marca para refresh las sesiones afectadas por un cambio del
// TenantDomain dado: las que lo tienen publicado y las que no tienen tenant
// (el cambio puede hacer que su origen ahora matchee). id vacío marca todas.
func (m *Manager) Invalidate(ctx context.Context, tenantDomainID string) {
	n := 0
	for _, item := range m.sessions.Items() {
		s, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		if tid := s.TenantDomainID(); tenantDomainID == "" || tid == tenantDomainID || tid == "" {
			s.MarkStale()
			n++
		}
	}
	logger.From(ctx).Debug("portal sessions invalidated",
		logger.TenantDomainID(tenantDomainID), logger.Count(n))
}

// InvalidateAll marca todas las sesiones para refresh.
func (m *Manager) InvalidateAll(ctx context.Context) { m.Invalidate(ctx, "") }

// Len cantidad de sesiones vivas.
func (m *Manager) Len() int { return m.sessions.ItemCount() }

// Close cierra y descarta todas las sesiones.
func (m *Manager) Close() {
	for key := range m.sessions.Items() {
		m.sessions.Delete(key) // dispara OnEvicted
	}
}
