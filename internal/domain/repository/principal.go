package repository

// Principal es el usuario autenticado. Lo provee el identity provider externo;
// este servicio nunca lo crea ni lo modifica.
type Principal struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	IsMSPAdmin            bool   `json:"is_msp_admin"`
	DefaultOrganizationID string `json:"default_organization_id,omitempty"`
	DefaultTeamID         string `json:"default_team_id,omitempty"`
}

// Key identifica al principal dentro de claves de cache/sesión.
// Un principal nil se representa como "anon".
func (p *Principal) Key() string {
	if p == nil || p.ID == "" {
		return "anon"
	}
	return p.ID
}

// SameAs compara los campos que afectan la evaluación de acceso.
func (p *Principal) SameAs(o *Principal) bool {
	if p == nil || o == nil {
		return p == nil && o == nil
	}
	return *p == *o
}
