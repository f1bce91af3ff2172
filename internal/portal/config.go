package portal

import (
	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// Paletas por defecto.
const (
	MSPCompanyName  = "Administration MSP"
	MSPPrimaryColor = "#2563eb"
	MSPAccentColor  = "#1e40af"

	TenantPrimaryColor = "#16a34a"
	TenantAccentColor  = "#15803d"
)

// Config es la configuración efectiva que consume el front-end.
type Config struct {
	Type           types.PortalType    `json:"type"`
	TenantDomain   string              `json:"tenant_domain,omitempty"`
	OrganizationID string              `json:"organization_id,omitempty"`
	AllowedModules []string            `json:"allowed_modules"`
	Branding       repository.Branding `json:"branding"`
	UIConfig       UIConfig            `json:"ui_config"`
	Features       Features            `json:"features"`
}

// UIConfig toggles de interfaz ya resueltos (sin "no definido").
type UIConfig struct {
	ShowMSPBranding          bool           `json:"show_msp_branding"`
	ShowOrganizationSelector bool           `json:"show_organization_selector"`
	ShowTeamSelector         bool           `json:"show_team_selector"`
	Theme                    string         `json:"theme,omitempty"`
	Extra                    map[string]any `json:"extra,omitempty"`
}

// Features flags derivados del tipo de portal y los módulos.
type Features struct {
	MultiTenantAccess     bool `json:"multi_tenant_access"`
	CrossOrganizationView bool `json:"cross_organization_view"`
	AdminSettingsAccess   bool `json:"admin_settings_access"`
	CloudManagement       bool `json:"cloud_management"`
	UserManagement        bool `json:"user_management"`
}

// BuildConfig deriva la Config de una Detection, mezclando branding y
// ui_config del tenant sobre los defaults del tipo de portal.
func (p *Policy) BuildConfig(det Detection, tenant *repository.TenantResolution) Config {
	allowed := modules.Clone(det.UserAccess.AccessibleModules)
	if allowed == nil {
		allowed = []string{}
	}
	cfg := Config{
		Type:           det.PortalType,
		AllowedModules: allowed,
		Features: Features{
			MultiTenantAccess:     det.PortalType == types.PortalMSPAdmin,
			CrossOrganizationView: det.UserAccess.CanSwitchOrganizations,
			AdminSettingsAccess:   det.UserAccess.HasAdminAccess,
			CloudManagement:       modules.Contains(allowed, modules.Cloud),
			UserManagement:        modules.Contains(allowed, modules.Users),
		},
	}

	switch {
	case det.PortalType == types.PortalMSPAdmin:
		cfg.Branding = repository.Branding{
			CompanyName:  MSPCompanyName,
			PrimaryColor: MSPPrimaryColor,
			AccentColor:  MSPAccentColor,
		}
		cfg.UIConfig = defaultUI(det.PortalType)

	case tenant == nil:
		// fallback sin tenant: paleta de cliente sin identidad
		cfg.Branding = repository.Branding{PrimaryColor: TenantPrimaryColor, AccentColor: TenantAccentColor}
		cfg.UIConfig = defaultUI(det.PortalType)

	default:
		cfg.TenantDomain = tenant.Domain.DomainName
		cfg.OrganizationID = tenant.Organization.ID
		cfg.Branding = mergeBranding(repository.Branding{
			CompanyName:  tenant.Organization.Name,
			PrimaryColor: TenantPrimaryColor,
			AccentColor:  TenantAccentColor,
		}, tenant.Domain.Branding)
		cfg.UIConfig = mergeUI(defaultUI(det.PortalType), tenant.Domain.UIConfig)
	}
	return cfg
}

func defaultUI(pt types.PortalType) UIConfig {
	if pt == types.PortalMSPAdmin {
		return UIConfig{ShowMSPBranding: true, ShowOrganizationSelector: true, ShowTeamSelector: true}
	}
	return UIConfig{ShowTeamSelector: true}
}

// mergeBranding pisa base con los campos definidos por el tenant.
func mergeBranding(base, over repository.Branding) repository.Branding {
	if over.CompanyName != "" {
		base.CompanyName = over.CompanyName
	}
	if over.LogoURL != "" {
		base.LogoURL = over.LogoURL
	}
	if over.PrimaryColor != "" {
		base.PrimaryColor = over.PrimaryColor
	}
	if over.AccentColor != "" {
		base.AccentColor = over.AccentColor
	}
	if over.CustomCSS != "" {
		base.CustomCSS = over.CustomCSS
	}
	base.Extra = mergeExtra(base.Extra, over.Extra)
	return base
}

func mergeUI(base UIConfig, over repository.UIConfig) UIConfig {
	if over.ShowMSPBranding != nil {
		base.ShowMSPBranding = *over.ShowMSPBranding
	}
	if over.ShowOrganizationSelector != nil {
		base.ShowOrganizationSelector = *over.ShowOrganizationSelector
	}
	if over.ShowTeamSelector != nil {
		base.ShowTeamSelector = *over.ShowTeamSelector
	}
	if over.Theme != "" {
		base.Theme = over.Theme
	}
	base.Extra = mergeExtra(base.Extra, over.Extra)
	return base
}

func mergeExtra(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
