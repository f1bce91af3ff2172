// Package tenant resuelve el tenant (TenantDomain + Organization + access config)
// que corresponde a un hostname de origen.
//
// Reglas de matching, en orden:
//  1. host normalizado exacto contra domain_name o host de full_url
//  2. primera etiqueta DNS contra los mismos campos ("acme.portal.io" -> "acme")
//
// Sin match no es un error: el caller cae al modo portal MSP / fallback.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/metrics"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/util"
)

var (
	// ErrResolution el directorio falló o no respondió a tiempo.
	ErrResolution = errors.New("tenant resolution failed")

	// ErrInvalidTenantState el dominio apunta a una organización inexistente.
	// Siempre viene envuelto junto a ErrResolution.
	ErrInvalidTenantState = errors.New("invalid tenant state")
)

// DefaultLookupTimeout cota de todas las llamadas al directorio de una resolución.
const DefaultLookupTimeout = 3 * time.Second

// Resolver resuelve tenants contra un repository.Directory.
// Es seguro para uso concurrente.
type Resolver struct {
	dir     repository.Directory
	timeout time.Duration
}

// Option configura el Resolver.
type Option func(*Resolver)

// WithLookupTimeout fija la cota de tiempo de cada resolución.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver crea un Resolver.
func NewResolver(dir repository.Directory, opts ...Option) *Resolver {
	r := &Resolver{dir: dir, timeout: DefaultLookupTimeout}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ResolveFromOrigin resuelve el tenant del origen de un request.
//
// Retorna (nil, nil) si no hay tenant o si la resolución falló: los fallos se
// loguean y nunca interrumpen el flujo. El único error retornado es la
// cancelación del ctx del caller.
func (r *Resolver) ResolveFromOrigin(ctx context.Context, hostname string) (*repository.TenantResolution, error) {
	res, err := r.resolve(ctx, hostname)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.From(ctx).Warn("tenant resolution failed, continuing without tenant",
			logger.Component("tenant_resolver"),
			logger.Origin(hostname),
			logger.Err(err))
		return nil, nil
	}
	return res, nil
}

// ResolveByDomain igual que ResolveFromOrigin pero retorna los errores
// (envueltos en ErrResolution) para herramientas de administración.
func (r *Resolver) ResolveByDomain(ctx context.Context, domain string) (*repository.TenantResolution, error) {
	return r.resolve(ctx, domain)
}

func (r *Resolver) resolve(ctx context.Context, raw string) (*repository.TenantResolution, error) {
	host := util.NormalizeHost(raw)
	if host == "" {
		metrics.TenantResolutions.WithLabelValues("not_found").Inc()
		return nil, nil
	}
	log := logger.From(ctx).With(logger.Component("tenant_resolver"), logger.Origin(host))

	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	td, err := r.findDomain(lctx, host)
	if err != nil {
		metrics.TenantResolutions.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: lookup %q: %w", ErrResolution, host, err)
	}
	if td == nil {
		metrics.TenantResolutions.WithLabelValues("not_found").Inc()
		log.Debug("no tenant for origin")
		return nil, nil
	}

	org, err := r.dir.GetOrganization(lctx, td.OrganizationID)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.TenantResolutions.WithLabelValues("invalid_state").Inc()
			return nil, fmt.Errorf("%w: %w: tenant domain %s references missing organization %s",
				ErrResolution, ErrInvalidTenantState, td.ID, td.OrganizationID)
		}
		metrics.TenantResolutions.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: organization %s: %w", ErrResolution, td.OrganizationID, err)
	}

	res := &repository.TenantResolution{Domain: *td, Organization: *org}

	cfg, err := r.dir.FindAccessConfig(lctx, td.ID, td.OrganizationID)
	if err != nil {
		// ConfigLoadFailure: el tenant sigue resuelto, se usan módulos por defecto
		res.ConfigErr = fmt.Errorf("load access config: %w", err)
		log.Warn("access config load failed", logger.TenantDomainID(td.ID), logger.Err(err))
	} else {
		res.AccessConfig = cfg
	}

	metrics.TenantResolutions.WithLabelValues("resolved").Inc()
	log.Debug("tenant resolved",
		logger.TenantDomainID(td.ID),
		logger.DomainName(td.DomainName),
		logger.OrganizationID(org.ID),
		zap.String("tenant_type", string(td.TenantType)))
	return res, nil
}

// findDomain prueba el host completo y después su primera etiqueta.
func (r *Resolver) findDomain(ctx context.Context, host string) (*repository.TenantDomain, error) {
	candidates := []string{host}
	if label := util.FirstLabel(host); label != "" {
		candidates = append(candidates, label)
	}
	for _, c := range candidates {
		start := time.Now()
		td, err := r.dir.FindActiveTenantDomainByOrigin(ctx, c)
		metrics.ObserveLookup("resolve", start)
		if err != nil {
			return nil, err
		}
		if td != nil {
			return td, nil
		}
	}
	return nil, nil
}
