package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/util"
	"github.com/dropDatabas3/mspportal/internal/validation"
)

// TenantDomain es la unidad de resolución por hostname.
// Varios TenantDomain pueden apuntar a la misma Organization.
type TenantDomain struct {
	ID             string
	DomainName     string // label corto ("acme")
	FullURL        string // origen completo ("https://acme.portal.example.com")
	OrganizationID string
	TenantType     types.TenantType
	IsActive       bool
	Branding       Branding
	UIConfig       UIConfig
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LookupKeys retorna los hosts normalizados por los que este dominio matchea
// (domain_name y host de full_url), sin duplicados.
func (td *TenantDomain) LookupKeys() []string {
	var out []string
	for _, k := range []string{util.NormalizeHost(td.DomainName), util.NormalizeHost(td.FullURL)} {
		if k != "" && (len(out) == 0 || out[0] != k) {
			out = append(out, k)
		}
	}
	return out
}

// Normalize canonicaliza domain_name (host normalizado) antes de persistir.
func (td *TenantDomain) Normalize() {
	td.DomainName = util.NormalizeHost(td.DomainName)
	td.FullURL = strings.TrimSpace(td.FullURL)
	td.OrganizationID = strings.TrimSpace(td.OrganizationID)
	if td.TenantType == "" {
		td.TenantType = types.TenantClient
	}
}

// Validate verifica los campos requeridos. Los errores envuelven ErrInvalidInput.
func (td *TenantDomain) Validate() error {
	switch {
	case td.DomainName == "":
		return fmt.Errorf("%w: domain_name is required", ErrInvalidInput)
	case !validation.ValidHostname(td.DomainName):
		return fmt.Errorf("%w: domain_name %q is not a hostname", ErrInvalidInput, td.DomainName)
	case td.OrganizationID == "":
		return fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	case !td.TenantType.IsValid():
		return fmt.Errorf("%w: tenant_type %q", ErrInvalidInput, td.TenantType)
	}
	return nil
}

// TenantAccessConfig define los módulos habilitados de un TenantDomain (1:1).
type TenantAccessConfig struct {
	TenantDomainID string
	OrganizationID string // copia denormalizada para filtrar
	AllowedModules []string
	// AccessRestrictions punto de extensión reservado, se persiste tal cual.
	AccessRestrictions map[string]any
	IsActive           bool
	UpdatedAt          time.Time
}

// HasModules indica si la config es usable para calcular módulos.
func (c *TenantAccessConfig) HasModules() bool {
	return c != nil && c.IsActive && len(c.AllowedModules) > 0
}

// TenantResolution es el resultado completo de resolver un tenant.
type TenantResolution struct {
	Domain       TenantDomain
	Organization Organization
	// AccessConfig nil si el tenant no tiene fila de configuración.
	AccessConfig *TenantAccessConfig
	// ConfigErr no nil si falló la carga del access config (ConfigLoadFailure).
	// La resolución sigue siendo válida y se usan los módulos por defecto.
	ConfigErr error
}

// TenantDomainFilter filtros de listado.
type TenantDomainFilter struct {
	OrganizationID string
	OnlyActive     bool
}

// Directory es la interfaz de lookup consumida por el Tenant Resolver.
// Es read-mostly y tolera consistencia eventual (unos segundos de staleness).
type Directory interface {
	// FindActiveTenantDomainByOrigin busca un TenantDomain activo cuyo domain_name
	// o host de full_url coincida con origin (ya normalizado).
	// Retorna (nil, nil) si no hay match.
	FindActiveTenantDomainByOrigin(ctx context.Context, origin string) (*TenantDomain, error)

	// FindAccessConfig retorna (nil, nil) si el tenant no tiene configuración.
	FindAccessConfig(ctx context.Context, tenantDomainID, organizationID string) (*TenantAccessConfig, error)

	// GetOrganization retorna ErrNotFound si no existe.
	GetOrganization(ctx context.Context, id string) (*Organization, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error
}

// TenantDomainRepository operaciones de administración sobre TenantDomain.
type TenantDomainRepository interface {
	List(ctx context.Context, filter TenantDomainFilter) ([]TenantDomain, error)

	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*TenantDomain, error)

	// Create retorna ErrConflict si domain_name o full_url ya existen.
	Create(ctx context.Context, td *TenantDomain) error

	// Update reemplaza los campos mutables. ErrNotFound si no existe.
	Update(ctx context.Context, td *TenantDomain) error

	// Delete borra el dominio. Con DeleteBlock retorna ErrHasDependents si
	// existe access config; con DeleteCascade lo borra en la misma operación.
	Delete(ctx context.Context, id string, policy types.DeletePolicy) error
}

// AccessConfigRepository administración del access config por tenant.
type AccessConfigRepository interface {
	// Get retorna ErrNotFound si no existe.
	Get(ctx context.Context, tenantDomainID string) (*TenantAccessConfig, error)

	// Upsert crea o reemplaza. ErrNotFound si el TenantDomain no existe.
	Upsert(ctx context.Context, cfg *TenantAccessConfig) error

	Delete(ctx context.Context, tenantDomainID string) error
}
