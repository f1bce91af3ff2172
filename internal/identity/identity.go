// Package identity adapta el identity provider externo: obtiene el Principal
// actual y notifica cambios (login, logout, refresh de sesión).
package identity

import (
	"context"
	"errors"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
)

// ErrUnauthenticated no hay principal (sin token o token inválido).
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// EventType tipo de cambio del principal.
type EventType string

const (
	EventLogin   EventType = "login"
	EventLogout  EventType = "logout"
	EventRefresh EventType = "refresh"
)

// Event notificación de cambio. Principal es nil en logout.
type Event struct {
	Type      EventType
	Principal *repository.Principal
}

// Provider fuente del principal actual.
type Provider interface {
	// Current retorna el principal o ErrUnauthenticated.
	Current(ctx context.Context) (*repository.Principal, error)
	// Watch canal de cambios. Puede ser nil si el provider no notifica.
	Watch() <-chan Event
}

type ctxKey struct{}

// WithPrincipal guarda el principal autenticado en el contexto del request.
func WithPrincipal(ctx context.Context, p *repository.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext retorna el principal del contexto (nil si no hay).
func FromContext(ctx context.Context) *repository.Principal {
	p, _ := ctx.Value(ctxKey{}).(*repository.Principal)
	return p
}

// RequestProvider lee el principal que el middleware de auth dejó en el contexto.
// No notifica cambios: cada request trae su propio principal.
type RequestProvider struct{}

func (RequestProvider) Current(ctx context.Context) (*repository.Principal, error) {
	if p := FromContext(ctx); p != nil {
		return p, nil
	}
	return nil, ErrUnauthenticated
}

func (RequestProvider) Watch() <-chan Event { return nil }
