// Package portal contiene los DTOs de la API publicada del portal.
package portal

import (
	"time"

	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/portal"
)

// ConfigResponse GET /v2/portal/config
type ConfigResponse struct {
	Config     portal.Config `json:"config"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
	Generation uint64        `json:"generation"`
}

// DetectionResponse GET /v2/portal/detection
type DetectionResponse struct {
	Detection  portal.Detection `json:"detection"`
	Origin     string           `json:"origin"`
	Generation uint64           `json:"generation"`
}

// ModuleAccessResponse GET /v2/portal/modules/{id}
type ModuleAccessResponse struct {
	Module     string           `json:"module"`
	Allowed    bool             `json:"allowed"`
	Permission types.Permission `json:"permission"`
}

// RefreshResponse POST /v2/portal/refresh
type RefreshResponse struct {
	Generation  uint64    `json:"generation"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Error       string    `json:"error,omitempty"`
}

// SwitchResponse POST /v2/portal/switch-msp (clientes JSON)
type SwitchResponse struct {
	Location string `json:"location"`
}

// GuardResponse estado del route guard (GET /v2/portal/guard y respuestas del middleware).
type GuardResponse struct {
	State    string `json:"state"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
	LoginURL string `json:"login_url,omitempty"`
}
