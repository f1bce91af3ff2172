// Package admin contiene los services de administración de tenants.
package admin

import (
	"context"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// DomainResolver resolución para herramientas de administración (con errores).
type DomainResolver interface {
	ResolveByDomain(ctx context.Context, domain string) (*repository.TenantResolution, error)
}

// Deps contiene las dependencias para crear los services admin.
// Los repositorios ya vienen decorados con invalidación de cache.
type Deps struct {
	Domains       repository.TenantDomainRepository
	AccessConfigs repository.AccessConfigRepository
	Organizations repository.OrganizationRepository
	Resolver      DomainResolver
	DeletePolicy  types.DeletePolicy
}

// Services agrupa todos los services del dominio admin.
type Services struct {
	TenantDomains TenantDomainService
	Organizations OrganizationService
}

// NewServices crea el agregador de services admin.
func NewServices(d Deps) Services {
	if !d.DeletePolicy.IsValid() {
		d.DeletePolicy = types.DeleteBlock
	}
	return Services{
		TenantDomains: NewTenantDomainService(d),
		Organizations: NewOrganizationService(d.Organizations),
	}
}
