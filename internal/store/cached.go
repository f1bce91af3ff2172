package store

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/mspportal/internal/cache"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/metrics"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// Claves del cache del directorio.
const (
	keyOrigin = "dir:origin:"
	keyConfig = "dir:cfg:"
	keyOrg    = "dir:org:"

	// nullValue marca un lookup negativo (origen sin tenant / tenant sin config).
	nullValue = "null"

	defaultFetchTimeout = 5 * time.Second
)

// OriginKey clave del lookup por origen.
func OriginKey(origin string) string { return keyOrigin + origin }

// ConfigKey clave del access config de un TenantDomain.
func ConfigKey(tenantDomainID string) string { return keyConfig + tenantDomainID }

// OrgKey clave de una organización.
func OrgKey(id string) string { return keyOrg + id }

// CachedDirectory decora un repository.Directory con cache read-through.
// Los lookups concurrentes de la misma clave se colapsan con singleflight.
// Los resultados negativos también se cachean; la staleness máxima es ttl
// salvo invalidación explícita (ver Invalidator).
//
// El fetch compartido corre desacoplado del contexto de quien lo inició:
// cancelar a un caller no afecta a los demás que esperan la misma clave.
type CachedDirectory struct {
	inner        repository.Directory
	cache        cache.Client
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
}

var _ repository.Directory = (*CachedDirectory)(nil)

// NewCachedDirectory crea el decorador. ttl <= 0 usa 5s.
func NewCachedDirectory(inner repository.Directory, c cache.Client, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &CachedDirectory{inner: inner, cache: c, ttl: ttl, fetchTimeout: defaultFetchTimeout}
}

// WithFetchTimeout acota cada fetch compartido contra el directorio. d <= 0 se ignora.
func (d *CachedDirectory) WithFetchTimeout(timeout time.Duration) *CachedDirectory {
	if timeout > 0 {
		d.fetchTimeout = timeout
	}
	return d
}

func (d *CachedDirectory) FindActiveTenantDomainByOrigin(ctx context.Context, origin string) (*repository.TenantDomain, error) {
	raw, err := d.load(ctx, "origin", OriginKey(origin), func(ctx context.Context) (any, error) {
		return d.inner.FindActiveTenantDomainByOrigin(ctx, origin)
	})
	if err != nil || raw == nullValue {
		return nil, err
	}
	var td repository.TenantDomain
	if err := json.Unmarshal([]byte(raw), &td); err != nil {
		return nil, err
	}
	return &td, nil
}

func (d *CachedDirectory) FindAccessConfig(ctx context.Context, tenantDomainID, organizationID string) (*repository.TenantAccessConfig, error) {
	raw, err := d.load(ctx, "access_config", ConfigKey(tenantDomainID), func(ctx context.Context) (any, error) {
		return d.inner.FindAccessConfig(ctx, tenantDomainID, organizationID)
	})
	if err != nil || raw == nullValue {
		return nil, err
	}
	var cfg repository.TenantAccessConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (d *CachedDirectory) GetOrganization(ctx context.Context, id string) (*repository.Organization, error) {
	raw, err := d.load(ctx, "organization", OrgKey(id), func(ctx context.Context) (any, error) {
		return d.inner.GetOrganization(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if raw == nullValue {
		return nil, repository.ErrNotFound
	}
	var org repository.Organization
	if err := json.Unmarshal([]byte(raw), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (d *CachedDirectory) Ping(ctx context.Context) error {
	return d.inner.Ping(ctx)
}

// load resuelve key desde cache o vía fetch. Retorna el JSON crudo
// (o nullValue) para que cada caller decodifique su propia copia.
func (d *CachedDirectory) load(ctx context.Context, op, key string, fetch func(context.Context) (any, error)) (string, error) {
	raw, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.DirectoryCache.WithLabelValues(op, "hit").Inc()
		return raw, nil
	case !cache.IsNotFound(err):
		// cache caído: seguimos contra el directorio
		metrics.DirectoryCache.WithLabelValues(op, "error").Inc()
		logger.From(ctx).Warn("directory cache get failed", logger.Op(op), logger.Err(err))
	default:
		metrics.DirectoryCache.WithLabelValues(op, "miss").Inc()
	}

	ch := d.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.fetchTimeout)
		defer cancel()

		start := time.Now()
		res, err := fetch(fctx)
		metrics.ObserveLookup(op, start)
		if err != nil {
			return "", err
		}
		raw := nullValue
		if !isNil(res) {
			b, err := json.Marshal(res)
			if err != nil {
				return "", err
			}
			raw = string(b)
		}
		if err := d.cache.Set(fctx, key, raw, d.ttl); err != nil {
			logger.From(ctx).Warn("directory cache set failed", logger.Op(op), logger.Err(err))
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *repository.TenantDomain:
		return x == nil
	case *repository.TenantAccessConfig:
		return x == nil
	case *repository.Organization:
		return x == nil
	}
	return false
}
