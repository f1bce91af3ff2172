package validation

import (
	"net"
	"regexp"
)

// Reglas de hostname para domain_name de un TenantDomain (ya normalizado):
// - Sólo minúsculas, dígitos y '-'.
// - Cada etiqueta empieza y termina con [a-z0-9], largo 1..63.
// - Etiquetas separadas por '.', largo total 1..253.
// - Se aceptan IPs literales (entornos de desarrollo).
//
// Válidos: acme, acme.portal.io, a-b.c1.example, 10.0.0.7
// Inválidos: "", -acme, acme-, acme..io, "bad space", acme/x, ACME
var labelRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)

// ValidHostname retorna true si name es un hostname o IP aceptable.
func ValidHostname(name string) bool {
	if len(name) == 0 || len(name) > 253 {
		return false
	}
	if net.ParseIP(name) != nil {
		return true
	}
	return labelRe.MatchString(name)
}
