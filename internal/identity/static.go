package identity

import (
	"context"
	"sync"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
)

// StaticProvider principal en memoria con notificaciones. Lo usan la CLI y los tests.
type StaticProvider struct {
	mu   sync.RWMutex
	p    *repository.Principal
	subs []chan Event
}

// NewStaticProvider crea el provider con un principal inicial (puede ser nil).
func NewStaticProvider(p *repository.Principal) *StaticProvider {
	return &StaticProvider{p: p}
}

func (s *StaticProvider) Current(context.Context) (*repository.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.p == nil {
		return nil, ErrUnauthenticated
	}
	cp := *s.p
	return &cp, nil
}

// Watch retorna un canal nuevo con buffer; los eventos que no entran se descartan.
func (s *StaticProvider) Watch() <-chan Event {
	ch := make(chan Event, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Set reemplaza el principal y notifica login/refresh/logout según corresponda.
func (s *StaticProvider) Set(p *repository.Principal) {
	s.mu.Lock()
	prev := s.p
	s.p = p
	subs := append([]chan Event(nil), s.subs...)
	s.mu.Unlock()

	ev := Event{Type: EventRefresh, Principal: p}
	switch {
	case p == nil:
		ev.Type = EventLogout
	case prev == nil || prev.ID != p.ID:
		ev.Type = EventLogin
	}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close cierra todos los canales de Watch.
func (s *StaticProvider) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
