// Package admin contiene los controllers de administración de tenants.
package admin

import svc "github.com/dropDatabas3/mspportal/internal/http/services/admin"

// Controllers agrupa todos los controllers del dominio admin.
type Controllers struct {
	TenantDomains *TenantDomainsController
	Organizations *OrganizationsController
}

// NewControllers crea el agregador de controllers admin.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		TenantDomains: NewTenantDomainsController(s.TenantDomains),
		Organizations: NewOrganizationsController(s.Organizations),
	}
}
