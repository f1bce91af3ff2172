package memory

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// Seed formato YAML del seed/snapshot del directorio en memoria.
type Seed struct {
	Organizations []SeedOrganization `yaml:"organizations"`
	TenantDomains []SeedTenantDomain `yaml:"tenant_domains"`
	AccessConfigs []SeedAccessConfig `yaml:"access_configs"`
}

type SeedOrganization struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type SeedTenantDomain struct {
	ID             string         `yaml:"id"`
	DomainName     string         `yaml:"domain_name"`
	FullURL        string         `yaml:"full_url,omitempty"`
	OrganizationID string         `yaml:"organization_id"`
	TenantType     string         `yaml:"tenant_type"`
	IsActive       bool           `yaml:"is_active"`
	Branding       map[string]any `yaml:"branding,omitempty"`
	UIConfig       map[string]any `yaml:"ui_config,omitempty"`
}

type SeedAccessConfig struct {
	TenantDomainID     string         `yaml:"tenant_domain_id"`
	AllowedModules     []string       `yaml:"allowed_modules"`
	AccessRestrictions map[string]any `yaml:"access_restrictions,omitempty"`
	IsActive           bool           `yaml:"is_active"`
}

// LoadYAML reemplaza el contenido del store con el seed dado.
// Aplica las mismas validaciones que los repositorios.
func (s *Store) LoadYAML(b []byte) error {
	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return err
	}
	return s.Load(seed)
}

// Load reemplaza el contenido del store con seed.
func (s *Store) Load(seed Seed) error {
	orgs := make(map[string]repository.Organization, len(seed.Organizations))
	for _, so := range seed.Organizations {
		o := repository.Organization{ID: so.ID, Name: so.Name, Type: types.OrganizationType(so.Type)}
		o.Normalize()
		if o.ID == "" {
			return fmt.Errorf("organization %q: id is required", so.Name)
		}
		if err := o.Validate(); err != nil {
			return fmt.Errorf("organization %q: %w", so.ID, err)
		}
		orgs[o.ID] = o
	}

	domains := make(map[string]repository.TenantDomain, len(seed.TenantDomains))
	hosts := map[string]string{}
	for _, sd := range seed.TenantDomains {
		branding, err := repository.DecodeBranding(sd.Branding)
		if err != nil {
			return fmt.Errorf("tenant domain %q: %w", sd.ID, err)
		}
		ui, err := repository.DecodeUIConfig(sd.UIConfig)
		if err != nil {
			return fmt.Errorf("tenant domain %q: %w", sd.ID, err)
		}
		td := repository.TenantDomain{
			ID:             sd.ID,
			DomainName:     sd.DomainName,
			FullURL:        sd.FullURL,
			OrganizationID: sd.OrganizationID,
			TenantType:     types.TenantType(sd.TenantType),
			IsActive:       sd.IsActive,
			Branding:       branding,
			UIConfig:       ui,
		}
		td.Normalize()
		if td.ID == "" {
			return fmt.Errorf("tenant domain %q: id is required", sd.DomainName)
		}
		if err := td.Validate(); err != nil {
			return fmt.Errorf("tenant domain %q: %w", td.ID, err)
		}
		if _, ok := orgs[td.OrganizationID]; !ok {
			return fmt.Errorf("tenant domain %q: organization %q does not exist", td.ID, td.OrganizationID)
		}
		for _, k := range td.LookupKeys() {
			if other, dup := hosts[k]; dup {
				return fmt.Errorf("tenant domain %q: host %q already used by %q", td.ID, k, other)
			}
			hosts[k] = td.ID
		}
		domains[td.ID] = td
	}

	configs := make(map[string]repository.TenantAccessConfig, len(seed.AccessConfigs))
	for _, sc := range seed.AccessConfigs {
		td, ok := domains[sc.TenantDomainID]
		if !ok {
			return fmt.Errorf("access config: tenant domain %q does not exist", sc.TenantDomainID)
		}
		mods, unknown := modules.Normalize(sc.AllowedModules)
		if len(unknown) > 0 {
			return fmt.Errorf("access config %q: unknown modules %v", sc.TenantDomainID, unknown)
		}
		configs[td.ID] = repository.TenantAccessConfig{
			TenantDomainID:     td.ID,
			OrganizationID:     td.OrganizationID,
			AllowedModules:     mods,
			AccessRestrictions: sc.AccessRestrictions,
			IsActive:           sc.IsActive,
		}
	}

	now := s.now().UTC()
	for id, td := range domains {
		td.CreatedAt, td.UpdatedAt = now, now
		domains[id] = td
	}

	s.mu.Lock()
	s.orgs, s.domains, s.configs = orgs, domains, configs
	s.mu.Unlock()
	return nil
}

func (s *Store) seedLocked() Seed {
	var seed Seed
	for _, o := range s.sortedOrgs() {
		seed.Organizations = append(seed.Organizations, SeedOrganization{ID: o.ID, Name: o.Name, Type: string(o.Type)})
	}
	for _, td := range s.sortedDomains() {
		seed.TenantDomains = append(seed.TenantDomains, SeedTenantDomain{
			ID:             td.ID,
			DomainName:     td.DomainName,
			FullURL:        td.FullURL,
			OrganizationID: td.OrganizationID,
			TenantType:     string(td.TenantType),
			IsActive:       td.IsActive,
			Branding:       nilIfEmpty(td.Branding.ToMap()),
			UIConfig:       nilIfEmpty(td.UIConfig.ToMap()),
		})
		if c, ok := s.configs[td.ID]; ok {
			seed.AccessConfigs = append(seed.AccessConfigs, SeedAccessConfig{
				TenantDomainID:     c.TenantDomainID,
				AllowedModules:     c.AllowedModules,
				AccessRestrictions: c.AccessRestrictions,
				IsActive:           c.IsActive,
			})
		}
	}
	return seed
}

func (s *Store) sortedOrgs() []repository.Organization {
	out := make([]repository.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, o)
	}
	// orden por id para snapshots reproducibles
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
