package rate

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter ventana fija en memoria local (una sola réplica).
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	k := key + ":" + strconv.FormatInt(winStart.Unix(), 10)

	// Add falla si ya existe: en ese caso incrementamos
	if err := l.c.Add(k, int64(1), l.window); err != nil {
		hits, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			// expiró entre Add e Increment
			l.c.Set(k, int64(1), l.window)
			hits = 1
		}
		return result(hits, l.max, winStart.Add(l.window).Sub(now), l.window), nil
	}
	return result(1, l.max, winStart.Add(l.window).Sub(now), l.window), nil
}
