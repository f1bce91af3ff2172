package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dropDatabas3/mspportal/internal/cache"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// ChangeFunc se notifica después de cada escritura del directorio.
// tenantDomainID vacío significa "cualquier tenant".
type ChangeFunc func(ctx context.Context, tenantDomainID string)

// Invalidator borra claves del cache del directorio y propaga la
// invalidación a otras réplicas por el bus.
type Invalidator struct {
	cache    cache.Client
	bus      cache.Bus // nil = sin propagación
	instance string

	mu        sync.RWMutex
	listeners []ChangeFunc
}

// NewInvalidator crea un Invalidator. bus puede ser nil.
func NewInvalidator(c cache.Client, bus cache.Bus) *Invalidator {
	return &Invalidator{cache: c, bus: bus, instance: uuid.NewString()}
}

// OnChange registra un listener (ej: el session manager).
func (i *Invalidator) OnChange(fn ChangeFunc) {
	i.mu.Lock()
	i.listeners = append(i.listeners, fn)
	i.mu.Unlock()
}

// Invalidate borra keys localmente, las publica y notifica listeners.
func (i *Invalidator) Invalidate(ctx context.Context, tenantDomainID string, keys ...string) error {
	var errs error
	if len(keys) > 0 {
		errs = multierr.Append(errs, i.cache.Delete(ctx, keys...))
		if i.bus != nil {
			errs = multierr.Append(errs, i.bus.Publish(ctx, encodeMessage(i.instance, tenantDomainID, keys)))
		}
	}
	i.notify(ctx, tenantDomainID)
	return errs
}

// Listen aplica las invalidaciones publicadas por otras réplicas hasta que ctx se cancele.
func (i *Invalidator) Listen(ctx context.Context) {
	if i.bus == nil {
		return
	}
	i.bus.Subscribe(ctx, func(msg string) {
		from, tdID, keys, ok := decodeMessage(msg)
		if !ok || from == i.instance {
			return
		}
		if len(keys) > 0 {
			if err := i.cache.Delete(ctx, keys...); err != nil {
				logger.From(ctx).Warn("remote invalidation failed", logger.Err(err), logger.Count(len(keys)))
			}
		}
		i.notify(ctx, tdID)
	})
}

func (i *Invalidator) notify(ctx context.Context, tenantDomainID string) {
	i.mu.RLock()
	ls := append([]ChangeFunc(nil), i.listeners...)
	i.mu.RUnlock()
	for _, fn := range ls {
		fn(ctx, tenantDomainID)
	}
}

// Mensaje: "<instance>|<tenantDomainID>|key1,key2". Las claves no contienen
// ',' ni '|' porque derivan de hostnames normalizados y UUIDs.
func encodeMessage(instance, tenantDomainID string, keys []string) string {
	return instance + "|" + tenantDomainID + "|" + strings.Join(keys, ",")
}

func decodeMessage(msg string) (instance, tenantDomainID string, keys []string, ok bool) {
	parts := strings.SplitN(msg, "|", 3)
	if len(parts) != 3 {
		return "", "", nil, false
	}
	if parts[2] != "" {
		keys = strings.Split(parts[2], ",")
	}
	return parts[0], parts[1], keys, true
}

func domainKeys(tds ...*repository.TenantDomain) []string {
	seen := map[string]bool{}
	var out []string
	for _, td := range tds {
		if td == nil {
			continue
		}
		for _, k := range td.LookupKeys() {
			k = OriginKey(k)
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// ─── Repos con invalidación ───

type invalidatingDomains struct {
	inner repository.TenantDomainRepository
	inv   *Invalidator
}

// WithDomainInvalidation decora el repo para invalidar cache en cada escritura.
func WithDomainInvalidation(inner repository.TenantDomainRepository, inv *Invalidator) repository.TenantDomainRepository {
	return &invalidatingDomains{inner: inner, inv: inv}
}

func (r *invalidatingDomains) List(ctx context.Context, f repository.TenantDomainFilter) ([]repository.TenantDomain, error) {
	return r.inner.List(ctx, f)
}

func (r *invalidatingDomains) GetByID(ctx context.Context, id string) (*repository.TenantDomain, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *invalidatingDomains) Create(ctx context.Context, td *repository.TenantDomain) error {
	if err := r.inner.Create(ctx, td); err != nil {
		return err
	}
	r.invalidate(ctx, td.ID, td)
	return nil
}

func (r *invalidatingDomains) Update(ctx context.Context, td *repository.TenantDomain) error {
	prev, err := r.inner.GetByID(ctx, td.ID)
	if err != nil {
		return err
	}
	if err := r.inner.Update(ctx, td); err != nil {
		return err
	}
	r.invalidate(ctx, td.ID, prev, td)
	return nil
}

func (r *invalidatingDomains) Delete(ctx context.Context, id string, policy types.DeletePolicy) error {
	prev, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.inner.Delete(ctx, id, policy); err != nil {
		return err
	}
	r.invalidate(ctx, id, prev)
	return nil
}

func (r *invalidatingDomains) invalidate(ctx context.Context, id string, tds ...*repository.TenantDomain) {
	keys := append(domainKeys(tds...), ConfigKey(id))
	if err := r.inv.Invalidate(ctx, id, keys...); err != nil {
		// la escritura ya se hizo; el TTL acota la staleness
		logger.From(ctx).Warn("directory invalidation failed", logger.TenantDomainID(id), logger.Err(err))
	}
}

type invalidatingConfigs struct {
	inner repository.AccessConfigRepository
	inv   *Invalidator
}

// WithConfigInvalidation decora el repo de access config.
func WithConfigInvalidation(inner repository.AccessConfigRepository, inv *Invalidator) repository.AccessConfigRepository {
	return &invalidatingConfigs{inner: inner, inv: inv}
}

func (r *invalidatingConfigs) Get(ctx context.Context, id string) (*repository.TenantAccessConfig, error) {
	return r.inner.Get(ctx, id)
}

func (r *invalidatingConfigs) Upsert(ctx context.Context, cfg *repository.TenantAccessConfig) error {
	if err := r.inner.Upsert(ctx, cfg); err != nil {
		return err
	}
	r.invalidate(ctx, cfg.TenantDomainID)
	return nil
}

func (r *invalidatingConfigs) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *invalidatingConfigs) invalidate(ctx context.Context, id string) {
	if err := r.inv.Invalidate(ctx, id, ConfigKey(id)); err != nil {
		logger.From(ctx).Warn("access config invalidation failed", logger.TenantDomainID(id), logger.Err(err))
	}
}
