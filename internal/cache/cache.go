// Package cache provee abstracciones de cache con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, go-cache; desarrollo/testing y near-cache)
//   - Redis (distribuido, para producción con varias réplicas)
//   - Tiered (near memory + far redis)
//
// Lo usa el decorator de directorio (store.CachedDirectory) para tolerar unos segundos
// de staleness y deduplicar lookups de hostname.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una o más keys. Keys inexistentes no son error.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind     string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// ErrNotFound la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New crea un cliente según la configuración. Para "redis" devuelve un Tiered
// con near-cache en memoria de TTL corto delante de Redis.
func New(ctx context.Context, cfg Config, nearTTL time.Duration) (Client, error) {
	if nearTTL <= 0 {
		nearTTL = time.Second
	}
	switch cfg.Kind {
	case "redis":
		far, err := NewRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewTiered(NewMemory(cfg.Prefix, nearTTL), far, nearTTL), nil
	default:
		return NewMemory(cfg.Prefix, 0), nil
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
