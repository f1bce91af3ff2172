package util

import (
	"net"
	"strings"
)

// NormalizeHost reduce un origen a su host canónico:
// minúsculas, sin esquema, puerto, path, punto final ni "www.".
//
//	"https://WWW.Acme.Portal.io:8443/x" -> "acme.portal.io"
func NormalizeHost(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	// userinfo
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	s = stripPort(s)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimPrefix(s, "www.")
	return s
}

func stripPort(s string) string {
	if strings.HasPrefix(s, "[") {
		// IPv6 literal
		if h, _, err := net.SplitHostPort(s); err == nil {
			return h
		}
		return strings.Trim(s, "[]")
	}
	if strings.Count(s, ":") == 1 {
		if h, _, err := net.SplitHostPort(s); err == nil {
			return h
		}
		return s[:strings.IndexByte(s, ':')]
	}
	return s
}

// FirstLabel retorna la primera etiqueta DNS de un host ya normalizado.
// Para IPs o hosts de una sola etiqueta retorna "".
func FirstLabel(host string) string {
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	i := strings.IndexByte(host, '.')
	if i <= 0 {
		return ""
	}
	return host[:i]
}

// IsLoopback indica si el host es localhost o una IP de loopback.
func IsLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
