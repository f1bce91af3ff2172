package cache

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// tiered combina un near-cache local con un far-cache compartido.
// Lecturas: near -> far (rellenando near). Escrituras y deletes: ambos.
type tiered struct {
	near    Client
	far     Client
	nearTTL time.Duration
}

// NewTiered crea un cliente de dos niveles. nearTTL acota la staleness local.
func NewTiered(near, far Client, nearTTL time.Duration) Client {
	return &tiered{near: near, far: far, nearTTL: nearTTL}
}

func (t *tiered) Get(ctx context.Context, key string) (string, error) {
	if v, err := t.near.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := t.far.Get(ctx, key)
	if err != nil {
		return "", err
	}
	_ = t.near.Set(ctx, key, v, t.nearTTL)
	return v, nil
}

func (t *tiered) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	nearTTL := t.nearTTL
	if ttl > 0 && ttl < nearTTL {
		nearTTL = ttl
	}
	_ = t.near.Set(ctx, key, value, nearTTL)
	return t.far.Set(ctx, key, value, ttl)
}

func (t *tiered) Delete(ctx context.Context, keys ...string) error {
	return multierr.Append(t.near.Delete(ctx, keys...), t.far.Delete(ctx, keys...))
}

func (t *tiered) Ping(ctx context.Context) error {
	return t.far.Ping(ctx)
}

func (t *tiered) Close() error {
	return multierr.Append(t.near.Close(), t.far.Close())
}
