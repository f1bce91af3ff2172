package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("t", 0)

	_, err := c.Get(ctx, "k")
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k", "missing"))
	_, err = c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 0)
	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestTiered_ReadThroughAndDelete(t *testing.T) {
	ctx := context.Background()
	near := NewMemory("", 0)
	far := NewMemory("", 0)
	c := NewTiered(near, far, time.Minute)

	require.NoError(t, far.Set(ctx, "k", "from-far", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "from-far", v)

	// quedó en near
	v, err = near.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "from-far", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = near.Get(ctx, "k")
	require.True(t, IsNotFound(err))
	_, err = far.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestLocalBus_DeliversUntilCancelled(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	var got atomic.Int32
	bus.Subscribe(ctx, func(msg string) {
		if msg == "td:1" {
			got.Add(1)
		}
	})

	require.NoError(t, bus.Publish(context.Background(), "td:1"))
	require.Equal(t, int32(1), got.Load())

	cancel()
	// la desuscripción es asíncrona: eventualmente un publish deja de llegar
	require.Eventually(t, func() bool {
		before := got.Load()
		_ = bus.Publish(context.Background(), "td:1")
		return got.Load() == before
	}, time.Second, 10*time.Millisecond)
}
