// Package admin contiene los DTOs de la API de administración de tenants.
package admin

import (
	"time"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// TenantDomainResponse representa un TenantDomain en respuestas.
type TenantDomainResponse struct {
	ID             string              `json:"id"`
	DomainName     string              `json:"domain_name"`
	FullURL        string              `json:"full_url,omitempty"`
	OrganizationID string              `json:"organization_id"`
	TenantType     types.TenantType    `json:"tenant_type"`
	IsActive       bool                `json:"is_active"`
	Branding       repository.Branding `json:"branding"`
	UIConfig       repository.UIConfig `json:"ui_config"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TenantDomainListResponse GET /v2/admin/tenant-domains
type TenantDomainListResponse struct {
	Items []TenantDomainResponse `json:"items"`
}

// CreateTenantDomainRequest POST /v2/admin/tenant-domains
type CreateTenantDomainRequest struct {
	DomainName     string           `json:"domain_name"`
	FullURL        string           `json:"full_url"`
	OrganizationID string           `json:"organization_id"`
	TenantType     types.TenantType `json:"tenant_type"`
	IsActive       *bool            `json:"is_active"` // default true
	Branding       map[string]any   `json:"branding"`
	UIConfig       map[string]any   `json:"ui_config"`
}

// UpdateTenantDomainRequest PUT /v2/admin/tenant-domains/{id}. Campos nil no cambian.
type UpdateTenantDomainRequest struct {
	DomainName     *string           `json:"domain_name"`
	FullURL        *string           `json:"full_url"`
	OrganizationID *string           `json:"organization_id"`
	TenantType     *types.TenantType `json:"tenant_type"`
	IsActive       *bool             `json:"is_active"`
	Branding       map[string]any    `json:"branding"`
	UIConfig       map[string]any    `json:"ui_config"`
}

// AccessConfigRequest PUT /v2/admin/tenant-domains/{id}/access-config
type AccessConfigRequest struct {
	AllowedModules     []string       `json:"allowed_modules"`
	AccessRestrictions map[string]any `json:"access_restrictions"`
	IsActive           *bool          `json:"is_active"` // default true
}

// AccessConfigResponse representa un TenantAccessConfig.
type AccessConfigResponse struct {
	TenantDomainID     string         `json:"tenant_domain_id"`
	OrganizationID     string         `json:"organization_id"`
	AllowedModules     []string       `json:"allowed_modules"`
	AccessRestrictions map[string]any `json:"access_restrictions,omitempty"`
	IsActive           bool           `json:"is_active"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// ResolveResponse GET /v2/admin/tenant-domains/resolve?domain=
type ResolveResponse struct {
	Query        string                `json:"query"`
	Matched      bool                  `json:"matched"`
	Domain       *TenantDomainResponse `json:"domain,omitempty"`
	Organization *OrganizationResponse `json:"organization,omitempty"`
	AccessConfig *AccessConfigResponse `json:"access_config,omitempty"`
	ConfigError  string                `json:"config_error,omitempty"`
}

// OrganizationResponse representa una organización.
type OrganizationResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Type      types.OrganizationType `json:"type"`
	IsMSP     bool                   `json:"is_msp"`
	CreatedAt time.Time              `json:"created_at"`
}

// OrganizationListResponse GET /v2/admin/organizations
type OrganizationListResponse struct {
	Items []OrganizationResponse `json:"items"`
}

// CreateOrganizationRequest POST /v2/admin/organizations
type CreateOrganizationRequest struct {
	ID   string                 `json:"id"` // opcional, se genera si falta
	Name string                 `json:"name"`
	Type types.OrganizationType `json:"type"`
}

// ─── Mappers ───

func TenantDomainFrom(td repository.TenantDomain) TenantDomainResponse {
	return TenantDomainResponse{
		ID:             td.ID,
		DomainName:     td.DomainName,
		FullURL:        td.FullURL,
		OrganizationID: td.OrganizationID,
		TenantType:     td.TenantType,
		IsActive:       td.IsActive,
		Branding:       td.Branding,
		UIConfig:       td.UIConfig,
		CreatedAt:      td.CreatedAt,
		UpdatedAt:      td.UpdatedAt,
	}
}

func AccessConfigFrom(c repository.TenantAccessConfig) AccessConfigResponse {
	mods := c.AllowedModules
	if mods == nil {
		mods = []string{}
	}
	return AccessConfigResponse{
		TenantDomainID:     c.TenantDomainID,
		OrganizationID:     c.OrganizationID,
		AllowedModules:     mods,
		AccessRestrictions: c.AccessRestrictions,
		IsActive:           c.IsActive,
		UpdatedAt:          c.UpdatedAt,
	}
}

func OrganizationFrom(o repository.Organization) OrganizationResponse {
	return OrganizationResponse{ID: o.ID, Name: o.Name, Type: o.Type, IsMSP: o.IsMSP, CreatedAt: o.CreatedAt}
}
