// Package portal contiene los controllers de la API del portal: config
// efectiva, detección, acceso a módulos y estado del route guard.
package portal

import "github.com/dropDatabas3/mspportal/internal/http/middlewares"

// Controllers agrupa todos los controllers del dominio portal.
type Controllers struct {
	Portal *PortalController
}

// NewControllers crea el agregador de controllers portal.
func NewControllers(guardCfg middlewares.GuardConfig) *Controllers {
	return &Controllers{
		Portal: NewPortalController(guardCfg),
	}
}
