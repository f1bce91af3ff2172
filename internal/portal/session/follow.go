package session

import (
	"context"
	"errors"

	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// Follow aplica a la sesión los cambios de principal que notifica el provider
// (login, logout, refresh) hasta que ctx termine o el canal se cierre.
// Bloquea; lanzarlo en una goroutine.
func (s *Session) Follow(ctx context.Context, p identity.Provider) {
	events := p.Watch()
	if events == nil {
		return
	}
	log := logger.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			err := s.SetPrincipal(ctx, ev.Principal)
			switch {
			case errors.Is(err, ErrClosed):
				return
			case err != nil && !errors.Is(err, ErrSuperseded):
				log.Warn("portal session refresh after identity change failed",
					logger.String("event", string(ev.Type)), logger.Err(err))
			}
		}
	}
}
