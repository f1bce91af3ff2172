package portal

import (
	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// CanAccess es el membership test contra AllowedModules.
func CanAccess(cfg Config, module string) bool {
	return modules.Contains(cfg.AllowedModules, module)
}

// Permission nivel de acceso a un módulo:
// none si no está permitido, admin en el portal MSP, read para los módulos
// de sólo lectura y write para el resto.
func Permission(cfg Config, module string) types.Permission {
	switch {
	case !CanAccess(cfg, module):
		return types.PermissionNone
	case cfg.Type == types.PortalMSPAdmin:
		return types.PermissionAdmin
	case modules.Contains(modules.ReadOnly, module):
		return types.PermissionRead
	default:
		return types.PermissionWrite
	}
}
