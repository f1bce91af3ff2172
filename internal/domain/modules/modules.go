// Package modules define el namespace plano de identificadores de módulos del portal
// y los conjuntos por defecto de cada tipo de portal.
//
// Agregar un módulo implica sumarlo acá (Known + los sets que correspondan) y en el
// registro de navegación del front-end.
package modules

import (
	"sort"
	"strings"
)

// ID identifica un área funcional del portal.
type ID = string

const (
	Dashboard        ID = "dashboard"
	Organizations    ID = "organizations"
	Users            ID = "users"
	Teams            ID = "teams"
	Roles            ID = "roles"
	RBAC             ID = "rbac"
	BusinessServices ID = "business-services"
	Applications     ID = "applications"
	Deployments      ID = "deployments"
	ITSM             ID = "itsm"
	Security         ID = "security"
	Cloud            ID = "cloud"
	Monitoring       ID = "monitoring"
	TenantManagement ID = "tenant-management"
	Settings         ID = "settings"
	Profile          ID = "profile"
)

// Known es el namespace completo de módulos publicados.
var Known = []ID{
	Dashboard, Organizations, Users, Teams, Roles, RBAC, BusinessServices,
	Applications, Deployments, ITSM, Security, Cloud, Monitoring,
	TenantManagement, Settings, Profile,
}

// MSPAdmin es el superset de módulos del portal de administración MSP.
var MSPAdmin = []ID{
	Dashboard, Organizations, Users, Teams, Roles, RBAC, BusinessServices,
	Applications, Deployments, ITSM, Security, Cloud, Monitoring,
	TenantManagement, Settings,
}

// ESNDefault se usa cuando un tenant ESN no tiene access config.
var ESNDefault = []ID{Dashboard, Users, Teams, ITSM, Monitoring, Applications}

// ClientDefault se usa cuando un tenant cliente no tiene access config.
var ClientDefault = []ID{
	Dashboard, Users, Teams, BusinessServices, Applications, ITSM,
	Monitoring, Profile, Settings,
}

// Fallback es el set mínimo sin tenant y sin privilegios MSP.
var Fallback = []ID{Dashboard, Users, Teams, ITSM, Monitoring, Profile}

// ReadOnly módulos que fuera del portal MSP sólo se exponen en lectura.
var ReadOnly = []ID{Monitoring, Security}

var known = toSet(Known)

// IsKnown retorna true si id pertenece al namespace.
func IsKnown(id string) bool {
	_, ok := known[id]
	return ok
}

// Contains es un membership test sobre una lista de módulos.
func Contains(list []ID, id string) bool {
	for _, m := range list {
		if m == id {
			return true
		}
	}
	return false
}

// Clone devuelve una copia para que los sets globales nunca se compartan mutables.
func Clone(list []ID) []ID {
	if list == nil {
		return nil
	}
	out := make([]ID, len(list))
	copy(out, list)
	return out
}

// Normalize limpia, deduplica y descarta vacíos preservando el orden de entrada.
// Devuelve además los identificadores que no pertenecen al namespace.
func Normalize(in []string) (out []ID, unknown []string) {
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !IsKnown(id) {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, id)
	}
	sort.Strings(unknown)
	return out, unknown
}

func toSet(list []ID) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, id := range list {
		m[id] = struct{}{}
	}
	return m
}
