package cache

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Bus distribuye mensajes de invalidación entre réplicas.
// Los mensajes son keys de cache (o "*" para todo).
type Bus interface {
	Publish(ctx context.Context, msg string) error
	// Subscribe invoca fn por cada mensaje hasta que ctx se cancele.
	Subscribe(ctx context.Context, fn func(msg string))
	Close() error
}

// ─── Local (una sola réplica / tests) ───

type localBus struct {
	mu   sync.RWMutex
	subs map[int]func(string)
	next int
}

// NewLocalBus crea un bus in-process.
func NewLocalBus() Bus {
	return &localBus{subs: make(map[int]func(string))}
}

func (b *localBus) Publish(_ context.Context, msg string) error {
	b.mu.RLock()
	fns := make([]func(string), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
	return nil
}

func (b *localBus) Subscribe(ctx context.Context, fn func(string)) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
}

func (b *localBus) Close() error { return nil }

// ─── Redis pub/sub ───

type redisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus crea un bus sobre Redis pub/sub.
func NewRedisBus(client *redis.Client, channel string) Bus {
	return &redisBus{client: client, channel: channel}
}

func (b *redisBus) Publish(ctx context.Context, msg string) error {
	return b.client.Publish(ctx, b.channel, msg).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, fn func(string)) {
	ps := b.client.Subscribe(ctx, b.channel)
	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				fn(m.Payload)
			}
		}
	}()
}

// Close no cierra el cliente: lo comparte con el cache.
func (b *redisBus) Close() error { return nil }
