// Package memory implementa el directorio en memoria.
// Sirve para dev/demo (seed YAML, snapshot opcional a disco) y para tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/store"
	"github.com/dropDatabas3/mspportal/internal/util/atomicwrite"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	s := New()
	if cfg.SeedFile != "" {
		b, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("memory: read seed: %w", err)
		}
		if err := s.LoadYAML(b); err != nil {
			return nil, fmt.Errorf("memory: load seed %s: %w", cfg.SeedFile, err)
		}
		logger.From(ctx).Info("memory directory seeded",
			logger.String("file", cfg.SeedFile),
			logger.Count(len(s.domains)))
	}
	s.snapshotFile = cfg.SnapshotFile
	return s, nil
}

// Store directorio en memoria. Implementa store.AdapterConnection y todos
// los repositorios del directorio.
type Store struct {
	mu      sync.RWMutex
	orgs    map[string]repository.Organization
	domains map[string]repository.TenantDomain
	configs map[string]repository.TenantAccessConfig // por tenant_domain_id

	snapshotFile string
	now          func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		orgs:    make(map[string]repository.Organization),
		domains: make(map[string]repository.TenantDomain),
		configs: make(map[string]repository.TenantAccessConfig),
		now:     time.Now,
	}
}

var _ store.AdapterConnection = (*Store)(nil)

func (s *Store) Name() string                   { return "memory" }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

func (s *Store) Directory() repository.Directory                     { return s }
func (s *Store) TenantDomains() repository.TenantDomainRepository    { return (*domainRepo)(s) }
func (s *Store) AccessConfigs() repository.AccessConfigRepository    { return (*configRepo)(s) }
func (s *Store) Organizations() repository.OrganizationRepository    { return (*orgRepo)(s) }

// ─── Directory ───

func (s *Store) FindActiveTenantDomainByOrigin(ctx context.Context, origin string) (*repository.TenantDomain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, td := range s.sortedDomains() {
		if !td.IsActive {
			continue
		}
		for _, k := range td.LookupKeys() {
			if k == origin {
				out := td
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) FindAccessConfig(ctx context.Context, tenantDomainID, organizationID string) (*repository.TenantAccessConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[tenantDomainID]
	if !ok || (organizationID != "" && cfg.OrganizationID != organizationID) {
		return nil, nil
	}
	return cloneConfig(cfg), nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*repository.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &org, nil
}

func (s *Store) sortedDomains() []repository.TenantDomain {
	out := make([]repository.TenantDomain, 0, len(s.domains))
	for _, td := range s.domains {
		out = append(out, td)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ─── Organizations ───

type orgRepo Store

func (r *orgRepo) List(ctx context.Context) ([]repository.Organization, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]repository.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *orgRepo) GetByID(ctx context.Context, id string) (*repository.Organization, error) {
	return (*Store)(r).GetOrganization(ctx, id)
}

func (r *orgRepo) Create(ctx context.Context, org *repository.Organization) error {
	s := (*Store)(r)
	org.Normalize()
	if err := org.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if _, exists := s.orgs[org.ID]; exists {
		return fmt.Errorf("%w: organization %q already exists", repository.ErrConflict, org.ID)
	}
	org.CreatedAt = s.now().UTC()
	s.orgs[org.ID] = *org
	s.persistLocked(ctx)
	return nil
}

// ─── TenantDomains ───

type domainRepo Store

func (r *domainRepo) List(ctx context.Context, f repository.TenantDomainFilter) ([]repository.TenantDomain, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.TenantDomain
	for _, td := range s.sortedDomains() {
		if f.OrganizationID != "" && td.OrganizationID != f.OrganizationID {
			continue
		}
		if f.OnlyActive && !td.IsActive {
			continue
		}
		out = append(out, td)
	}
	return out, nil
}

func (r *domainRepo) GetByID(ctx context.Context, id string) (*repository.TenantDomain, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	td, ok := s.domains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &td, nil
}

func (r *domainRepo) Create(ctx context.Context, td *repository.TenantDomain) error {
	s := (*Store)(r)
	td.Normalize()
	if err := td.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if td.ID == "" {
		td.ID = uuid.NewString()
	}
	if _, exists := s.domains[td.ID]; exists {
		return fmt.Errorf("%w: tenant domain %q already exists", repository.ErrConflict, td.ID)
	}
	if err := s.checkDomainLocked(td); err != nil {
		return err
	}
	now := s.now().UTC()
	td.CreatedAt, td.UpdatedAt = now, now
	s.domains[td.ID] = *td
	s.persistLocked(ctx)
	return nil
}

func (r *domainRepo) Update(ctx context.Context, td *repository.TenantDomain) error {
	s := (*Store)(r)
	td.Normalize()
	if err := td.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.domains[td.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.checkDomainLocked(td); err != nil {
		return err
	}
	td.CreatedAt = prev.CreatedAt
	td.UpdatedAt = s.now().UTC()
	s.domains[td.ID] = *td

	// la copia denormalizada del access config sigue a la organización
	if cfg, ok := s.configs[td.ID]; ok && cfg.OrganizationID != td.OrganizationID {
		cfg.OrganizationID = td.OrganizationID
		s.configs[td.ID] = cfg
	}
	s.persistLocked(ctx)
	return nil
}

func (r *domainRepo) Delete(ctx context.Context, id string, policy types.DeletePolicy) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[id]; !ok {
		return repository.ErrNotFound
	}
	if _, hasCfg := s.configs[id]; hasCfg {
		if policy != types.DeleteCascade {
			return fmt.Errorf("%w: tenant domain %q has an access config", repository.ErrHasDependents, id)
		}
		delete(s.configs, id)
	}
	delete(s.domains, id)
	s.persistLocked(ctx)
	return nil
}

// checkDomainLocked valida organización existente y unicidad de los hosts.
func (s *Store) checkDomainLocked(td *repository.TenantDomain) error {
	if _, ok := s.orgs[td.OrganizationID]; !ok {
		return fmt.Errorf("%w: organization %q does not exist", repository.ErrInvalidInput, td.OrganizationID)
	}
	keys := td.LookupKeys()
	for id, other := range s.domains {
		if id == td.ID {
			continue
		}
		for _, a := range other.LookupKeys() {
			for _, b := range keys {
				if a == b {
					return fmt.Errorf("%w: host %q already used by tenant domain %q", repository.ErrConflict, a, id)
				}
			}
		}
	}
	return nil
}

// ─── AccessConfigs ───

type configRepo Store

func (r *configRepo) Get(ctx context.Context, id string) (*repository.TenantAccessConfig, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneConfig(cfg), nil
}

func (r *configRepo) Upsert(ctx context.Context, cfg *repository.TenantAccessConfig) error {
	s := (*Store)(r)
	mods, unknown := modules.Normalize(cfg.AllowedModules)
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown modules %v", repository.ErrInvalidInput, unknown)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	td, ok := s.domains[cfg.TenantDomainID]
	if !ok {
		return repository.ErrNotFound
	}
	cfg.AllowedModules = mods
	cfg.OrganizationID = td.OrganizationID
	cfg.UpdatedAt = s.now().UTC()
	s.configs[cfg.TenantDomainID] = *cloneConfig(*cfg)
	s.persistLocked(ctx)
	return nil
}

func (r *configRepo) Delete(ctx context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.configs, id)
	s.persistLocked(ctx)
	return nil
}

func cloneConfig(c repository.TenantAccessConfig) *repository.TenantAccessConfig {
	c.AllowedModules = modules.Clone(c.AllowedModules)
	if c.AccessRestrictions != nil {
		m := make(map[string]any, len(c.AccessRestrictions))
		for k, v := range c.AccessRestrictions {
			m[k] = v
		}
		c.AccessRestrictions = m
	}
	return &c
}

// persistLocked escribe el snapshot si está configurado. Un fallo se loguea:
// el estado en memoria sigue siendo la fuente de verdad.
func (s *Store) persistLocked(ctx context.Context) {
	if s.snapshotFile == "" {
		return
	}
	b, err := yaml.Marshal(s.seedLocked())
	if err == nil {
		err = atomicwrite.WriteFile(s.snapshotFile, b, 0o600)
	}
	if err != nil {
		logger.From(ctx).Error("memory snapshot failed", logger.String("file", s.snapshotFile), logger.Err(err))
	}
}
