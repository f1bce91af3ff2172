// Package portal calcula el tipo de portal, los módulos accesibles y la
// configuración efectiva (branding, UI, features) de una sesión.
//
// Todo en este paquete es puro: mismas entradas, misma salida, sin I/O.
package portal

import (
	"strings"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/util"
)

// Detection es el resultado de evaluar (tenant, principal, hostname).
type Detection struct {
	PortalType       types.PortalType `json:"portal_type"`
	IsMSPAdminPortal bool             `json:"is_msp_admin_portal"`
	IsClientPortal   bool             `json:"is_client_portal"`
	TenantInfo       *TenantInfo      `json:"tenant_info,omitempty"`
	UserAccess       UserAccess       `json:"user_access"`
}

// TenantInfo identifica el tenant resuelto.
type TenantInfo struct {
	TenantDomainID   string           `json:"tenant_domain_id"`
	DomainName       string           `json:"domain_name"`
	TenantType       types.TenantType `json:"tenant_type"`
	OrganizationID   string           `json:"organization_id"`
	OrganizationName string           `json:"organization_name"`
}

// UserAccess capacidades del principal en este portal.
type UserAccess struct {
	HasAdminAccess         bool     `json:"has_admin_access"`
	CanSwitchOrganizations bool     `json:"can_switch_organizations"`
	AccessibleModules      []string `json:"accessible_modules"`
}

// EvaluationInput entradas del evaluador. Hostname es el origen ya extraído
// por la capa de transporte; Tenant nil significa "sin tenant".
type EvaluationInput struct {
	Tenant    *repository.TenantResolution
	Principal *repository.Principal
	Hostname  string
}

// PolicyConfig parámetros del evaluador.
type PolicyConfig struct {
	// MSPOrigin origen canónico del portal MSP (ej: https://admin.msp.io).
	MSPOrigin string
	// AdminHosts hosts adicionales considerados de administración.
	AdminHosts []string
}

// Policy evalúa el acceso a módulos. Inmutable tras NewPolicy.
type Policy struct {
	mspOrigin  string
	mspHost    string
	adminHosts map[string]struct{}
}

// NewPolicy crea la política.
func NewPolicy(cfg PolicyConfig) *Policy {
	p := &Policy{
		mspOrigin:  strings.TrimRight(strings.TrimSpace(cfg.MSPOrigin), "/"),
		mspHost:    util.NormalizeHost(cfg.MSPOrigin),
		adminHosts: make(map[string]struct{}, len(cfg.AdminHosts)),
	}
	for _, h := range cfg.AdminHosts {
		if h = util.NormalizeHost(h); h != "" {
			p.adminHosts[h] = struct{}{}
		}
	}
	return p
}

// MSPOrigin retorna el origen canónico del portal MSP ("" si no está configurado).
func (p *Policy) MSPOrigin() string { return p.mspOrigin }

// IsAdminHost indica si el hostname "parece" el portal de administración:
// hosts configurados, el host del origen MSP, loopback, o primera etiqueta
// admin / admin-* / msp*.
func (p *Policy) IsAdminHost(hostname string) bool {
	host := util.NormalizeHost(hostname)
	if host == "" {
		return false
	}
	if _, ok := p.adminHosts[host]; ok {
		return true
	}
	if p.mspHost != "" && host == p.mspHost {
		return true
	}
	if util.IsLoopback(host) {
		return true
	}
	label := util.FirstLabel(host)
	return label == "admin" || strings.HasPrefix(label, "admin-") || strings.HasPrefix(label, "msp")
}

// Evaluate calcula la Detection. Prioridad (gana la primera):
//  1. sin tenant + host de admin + principal MSP admin -> msp_admin
//  2. tenant resuelto -> esn_portal / client_portal con sus módulos
//  3. fallback -> client_portal mínimo
//
// Un tenant resuelto siempre gana sobre el flag de admin del principal.
func (p *Policy) Evaluate(in EvaluationInput) Detection {
	isAdmin := in.Principal != nil && in.Principal.IsMSPAdmin

	switch {
	case in.Tenant == nil && isAdmin && p.IsAdminHost(in.Hostname):
		return newDetection(types.PortalMSPAdmin, nil, UserAccess{
			HasAdminAccess:         true,
			CanSwitchOrganizations: true,
			AccessibleModules:      modules.Clone(modules.MSPAdmin),
		})

	case in.Tenant != nil:
		t := in.Tenant
		pt := types.PortalClient
		if t.Domain.TenantType == types.TenantESN {
			pt = types.PortalESN
		}
		return newDetection(pt, &TenantInfo{
			TenantDomainID:   t.Domain.ID,
			DomainName:       t.Domain.DomainName,
			TenantType:       t.Domain.TenantType,
			OrganizationID:   t.Organization.ID,
			OrganizationName: t.Organization.Name,
		}, UserAccess{AccessibleModules: tenantModules(t)})

	default:
		return newDetection(types.PortalClient, nil, UserAccess{
			AccessibleModules: modules.Clone(modules.Fallback),
		})
	}
}

func newDetection(pt types.PortalType, ti *TenantInfo, ua UserAccess) Detection {
	return Detection{
		PortalType:       pt,
		IsMSPAdminPortal: pt == types.PortalMSPAdmin,
		IsClientPortal:   pt != types.PortalMSPAdmin,
		TenantInfo:       ti,
		UserAccess:       ua,
	}
}

// tenantModules usa el access config si está activo y no vacío; si no, el
// default del tipo de tenant.
func tenantModules(t *repository.TenantResolution) []string {
	if t.AccessConfig.HasModules() {
		return modules.Clone(t.AccessConfig.AllowedModules)
	}
	if t.Domain.TenantType == types.TenantESN {
		return modules.Clone(modules.ESNDefault)
	}
	return modules.Clone(modules.ClientDefault)
}
