package repository

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Branding identidad visual de un tenant. Las claves conocidas son explícitas;
// cualquier otra clave del blob original se conserva en Extra.
type Branding struct {
	CompanyName  string         `mapstructure:"company_name" json:"company_name,omitempty"`
	LogoURL      string         `mapstructure:"logo_url" json:"logo_url,omitempty"`
	PrimaryColor string         `mapstructure:"primary_color" json:"primary_color,omitempty"`
	AccentColor  string         `mapstructure:"accent_color" json:"accent_color,omitempty"`
	CustomCSS    string         `mapstructure:"custom_css" json:"custom_css,omitempty"`
	Extra        map[string]any `mapstructure:",remain" json:"extra,omitempty"`
}

// IsZero indica que el tenant no definió branding propio.
func (b Branding) IsZero() bool {
	return b.CompanyName == "" && b.LogoURL == "" && b.PrimaryColor == "" &&
		b.AccentColor == "" && b.CustomCSS == "" && len(b.Extra) == 0
}

// UIConfig toggles de interfaz. Los punteros distinguen "no definido" de false
// para poder mezclar sobre los defaults del tipo de portal.
type UIConfig struct {
	ShowMSPBranding          *bool          `mapstructure:"show_msp_branding" json:"show_msp_branding,omitempty"`
	ShowOrganizationSelector *bool          `mapstructure:"show_organization_selector" json:"show_organization_selector,omitempty"`
	ShowTeamSelector         *bool          `mapstructure:"show_team_selector" json:"show_team_selector,omitempty"`
	Theme                    string         `mapstructure:"theme" json:"theme,omitempty"`
	Extra                    map[string]any `mapstructure:",remain" json:"extra,omitempty"`
}

// DecodeBranding convierte el blob JSON almacenado en un Branding tipado.
func DecodeBranding(m map[string]any) (Branding, error) {
	var b Branding
	if err := decodeBlob(m, &b); err != nil {
		return Branding{}, fmt.Errorf("decode branding: %w", err)
	}
	return b, nil
}

// DecodeUIConfig convierte el blob JSON almacenado en un UIConfig tipado.
func DecodeUIConfig(m map[string]any) (UIConfig, error) {
	var u UIConfig
	if err := decodeBlob(m, &u); err != nil {
		return UIConfig{}, fmt.Errorf("decode ui_config: %w", err)
	}
	return u, nil
}

// ToMap serializa el Branding al formato de blob persistido.
func (b Branding) ToMap() map[string]any {
	out := make(map[string]any, len(b.Extra)+5)
	for k, v := range b.Extra {
		out[k] = v
	}
	putString(out, "company_name", b.CompanyName)
	putString(out, "logo_url", b.LogoURL)
	putString(out, "primary_color", b.PrimaryColor)
	putString(out, "accent_color", b.AccentColor)
	putString(out, "custom_css", b.CustomCSS)
	return out
}

// ToMap serializa el UIConfig al formato de blob persistido.
func (u UIConfig) ToMap() map[string]any {
	out := make(map[string]any, len(u.Extra)+4)
	for k, v := range u.Extra {
		out[k] = v
	}
	if u.ShowMSPBranding != nil {
		out["show_msp_branding"] = *u.ShowMSPBranding
	}
	if u.ShowOrganizationSelector != nil {
		out["show_organization_selector"] = *u.ShowOrganizationSelector
	}
	if u.ShowTeamSelector != nil {
		out["show_team_selector"] = *u.ShowTeamSelector
	}
	putString(out, "theme", u.Theme)
	return out
}

func decodeBlob(m map[string]any, out any) error {
	if len(m) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

func putString(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}
