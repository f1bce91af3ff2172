// Package guard decide qué mostrar frente a un árbol protegido a partir del
// estado de carga, el principal y el requisito del árbol. Sin estado propio.
package guard

import (
	"slices"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/metrics"
)

// Outcome resultado del guard. Siempre exactamente uno.
type Outcome string

const (
	// Loading placeholder neutro mientras se obtiene el principal. Nunca redirige.
	Loading Outcome = "loading"
	// RedirectLogin no hay principal: ir al login.
	RedirectLogin Outcome = "redirect_login"
	// AccessDenied principal sin el permiso requerido: vista de acceso denegado
	// con link a re-autenticarse, sin redirect automático.
	AccessDenied Outcome = "access_denied"
	// Render mostrar el contenido protegido.
	Render Outcome = "render"
)

// Requirement lo que exige el árbol protegido.
type Requirement struct {
	// MSPAdmin exige principal.IsMSPAdmin.
	MSPAdmin bool `json:"msp_admin"`
	// Module exige que el módulo esté entre los accesibles del portal.
	Module string `json:"module,omitempty"`
}

// RequireMSPAdmin requisito del árbol de administración MSP.
var RequireMSPAdmin = Requirement{MSPAdmin: true}

// RequireAuthenticated sólo exige sesión.
var RequireAuthenticated = Requirement{}

// RequireModule exige acceso al módulo id.
func RequireModule(id string) Requirement { return Requirement{Module: id} }

// Input entradas del guard.
type Input struct {
	Loading     bool
	Principal   *repository.Principal
	Requirement Requirement
	// AccessibleModules módulos publicados por la sesión (sólo si Requirement.Module).
	AccessibleModules []string
}

// Decide evalúa el guard. Orden: loading > sin principal > sin permiso > render.
func Decide(in Input) Outcome {
	out := decide(in)
	metrics.GuardOutcomes.WithLabelValues(string(out)).Inc()
	return out
}

func decide(in Input) Outcome {
	switch {
	case in.Loading:
		return Loading
	case in.Principal == nil:
		return RedirectLogin
	case in.Requirement.MSPAdmin && !in.Principal.IsMSPAdmin:
		return AccessDenied
	case in.Requirement.Module != "" && !slices.Contains(in.AccessibleModules, in.Requirement.Module):
		return AccessDenied
	default:
		return Render
	}
}
