package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
)

func countingResolver(labels ...string) (resolverFunc, *atomic.Int32) {
	var calls atomic.Int32
	base := tenantsByLabel(labels...)
	return func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		calls.Add(1)
		return base(ctx, host)
	}, &calls
}

// slowResolver tarda delay en responder y respeta la cancelación de ctx.
func slowResolver(delay time.Duration, labels ...string) (resolverFunc, *atomic.Int32) {
	var calls atomic.Int32
	base := tenantsByLabel(labels...)
	return func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		calls.Add(1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return base(ctx, host)
	}, &calls
}

func TestManager_GetReusesFreshSession(t *testing.T) {
	ctx := context.Background()
	r, calls := countingResolver("acme")
	m := NewManager(r, testPolicy(), ManagerConfig{MaxAge: time.Minute})
	defer m.Close()

	s1, err := m.Get(ctx, "https://ACME.msp.io/", user)
	require.NoError(t, err)
	s2, err := m.Get(ctx, "acme.msp.io", user)
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, m.Len())
	assert.True(t, s1.CanAccessModule("dashboard"))

	// otro principal, otra sesión
	s3, err := m.Get(ctx, "acme.msp.io", admin)
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, m.Len())
}

func TestManager_RefreshesWhenOld(t *testing.T) {
	ctx := context.Background()
	r, calls := countingResolver("acme")
	m := NewManager(r, testPolicy(), ManagerConfig{MaxAge: 20 * time.Millisecond})
	defer m.Close()

	_, err := m.Get(ctx, "acme.msp.io", user)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = m.Get(ctx, "acme.msp.io", user)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	r, calls := countingResolver("acme", "globex")
	m := NewManager(r, testPolicy(), ManagerConfig{MaxAge: time.Hour})
	defer m.Close()

	acme, _ := m.Get(ctx, "acme.msp.io", user)
	globex, _ := m.Get(ctx, "globex.msp.io", user)
	none, _ := m.Get(ctx, "unknown.msp.io", user)
	require.EqualValues(t, 3, calls.Load())

	m.Invalidate(ctx, "td-acme")
	assert.True(t, acme.NeedsRefresh(time.Hour))
	assert.False(t, globex.NeedsRefresh(time.Hour))
	// sin tenant: el cambio puede hacer que su origen ahora matchee
	assert.True(t, none.NeedsRefresh(time.Hour))

	_, err := m.Get(ctx, "acme.msp.io", user)
	require.NoError(t, err)
	assert.EqualValues(t, 4, calls.Load())

	m.InvalidateAll(ctx)
	assert.True(t, globex.NeedsRefresh(time.Hour))
}

func TestManager_CloseClosesSessions(t *testing.T) {
	ctx := context.Background()
	r, _ := countingResolver("acme")
	m := NewManager(r, testPolicy(), ManagerConfig{})

	s, err := m.Get(ctx, "acme.msp.io", user)
	require.NoError(t, err)
	m.Close()

	assert.Equal(t, 0, m.Len())
	require.ErrorIs(t, s.Refresh(ctx), ErrClosed)
}

func TestManager_ConcurrentGetsShareOneRefresh(t *testing.T) {
	r, calls := slowResolver(40*time.Millisecond, "acme")
	m := NewManager(r, testPolicy(), ManagerConfig{MaxAge: time.Hour})
	defer m.Close()

	var served, withoutConfig atomic.Int32
	hammer := func() {
		var wg sync.WaitGroup
		deadline := time.Now().Add(200 * time.Millisecond)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for time.Now().Before(deadline) {
					s, err := m.Get(context.Background(), "acme.msp.io", user)
					if assert.NoError(t, err) && s.CanAccessModule("dashboard") {
						served.Add(1)
					} else {
						withoutConfig.Add(1)
					}
					time.Sleep(5 * time.Millisecond)
				}
			}()
		}
		wg.Wait()
	}

	hammer()
	assert.EqualValues(t, 1, calls.Load())
	assert.Zero(t, withoutConfig.Load())
	assert.Positive(t, served.Load())

	// una invalidación produce exactamente un refresh más
	m.InvalidateAll(context.Background())
	hammer()
	assert.EqualValues(t, 2, calls.Load())
	assert.Zero(t, withoutConfig.Load())
	assert.Equal(t, 1, m.Len())
}

func TestManager_CancelledWaiterDoesNotAbortRefresh(t *testing.T) {
	r, calls := slowResolver(50*time.Millisecond, "acme")
	m := NewManager(r, testPolicy(), ManagerConfig{MaxAge: time.Hour})
	defer m.Close()

	other := make(chan *Session, 1)
	go func() {
		s, err := m.Get(context.Background(), "acme.msp.io", user)
		assert.NoError(t, err)
		other <- s
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	s, err := m.Get(ctx, "acme.msp.io", user)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, s)

	s = <-other
	require.NotNil(t, s)
	assert.Equal(t, "td-acme", s.TenantDomainID())
	assert.Empty(t, s.State().Error)
	assert.EqualValues(t, 1, calls.Load())
}

func TestManager_RetentionBounds(t *testing.T) {
	ctx := context.Background()
	r, _ := countingResolver("acme", "globex")
	m := NewManager(r, testPolicy(), ManagerConfig{MaxAge: time.Hour, MaxSessions: 2})
	defer m.Close()

	// anónimo sobre un Host sin tenant: se sirve pero no se retiene
	s, err := m.Get(ctx, "random-123.example.net", nil)
	require.NoError(t, err)
	_, ok := s.PortalConfig()
	assert.True(t, ok)
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(ctx, "acme.msp.io", nil)
	require.NoError(t, err)
	_, err = m.Get(ctx, "acme.msp.io", user)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	// tope alcanzado: la sesión nueva se sirve igual
	s, err = m.Get(ctx, "globex.msp.io", user)
	require.NoError(t, err)
	assert.Equal(t, "td-globex", s.TenantDomainID())
	assert.Equal(t, 2, m.Len())
}
