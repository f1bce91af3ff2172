package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/cache"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// countingDirectory cuenta llamadas y permite bloquear lookups.
type countingDirectory struct {
	calls   atomic.Int32
	release chan struct{}
	domains map[string]*repository.TenantDomain
	err     error
}

func (d *countingDirectory) FindActiveTenantDomainByOrigin(ctx context.Context, origin string) (*repository.TenantDomain, error) {
	d.calls.Add(1)
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.domains[origin], nil
}

func (d *countingDirectory) FindAccessConfig(context.Context, string, string) (*repository.TenantAccessConfig, error) {
	d.calls.Add(1)
	return &repository.TenantAccessConfig{TenantDomainID: "td-1", AllowedModules: []string{"dashboard"}, IsActive: true}, nil
}

func (d *countingDirectory) GetOrganization(_ context.Context, id string) (*repository.Organization, error) {
	d.calls.Add(1)
	if id == "missing" {
		return nil, repository.ErrNotFound
	}
	return &repository.Organization{ID: id, Name: "Acme", Type: types.OrganizationClient}, nil
}

func (d *countingDirectory) Ping(context.Context) error { return nil }

func acmeDomain() *repository.TenantDomain {
	return &repository.TenantDomain{
		ID: "td-1", DomainName: "acme", OrganizationID: "org-1",
		TenantType: types.TenantClient, IsActive: true,
		Branding: repository.Branding{CompanyName: "Acme", Extra: map[string]any{"favicon": "/x.ico"}},
	}
}

func TestCachedDirectory_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{domains: map[string]*repository.TenantDomain{"acme": acmeDomain()}}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute)

	for i := 0; i < 3; i++ {
		td, err := d.FindActiveTenantDomainByOrigin(ctx, "acme")
		require.NoError(t, err)
		require.NotNil(t, td)
		assert.Equal(t, "Acme", td.Branding.CompanyName)
		assert.Equal(t, "/x.ico", td.Branding.Extra["favicon"])
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedDirectory_NegativeCaching(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{domains: map[string]*repository.TenantDomain{}}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute)

	for i := 0; i < 2; i++ {
		td, err := d.FindActiveTenantDomainByOrigin(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, td)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedDirectory_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{err: errors.New("db down")}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute)

	_, err := d.FindActiveTenantDomainByOrigin(ctx, "acme")
	require.Error(t, err)
	_, err = d.FindActiveTenantDomainByOrigin(ctx, "acme")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedDirectory_OrganizationNotFound(t *testing.T) {
	inner := &countingDirectory{}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute)
	_, err := d.GetOrganization(context.Background(), "missing")
	assert.True(t, repository.IsNotFound(err))

	org, err := d.GetOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
}

func TestCachedDirectory_SingleFlight(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{
		release: make(chan struct{}),
		domains: map[string]*repository.TenantDomain{"acme": acmeDomain()},
	}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			td, err := d.FindActiveTenantDomainByOrigin(ctx, "acme")
			assert.NoError(t, err)
			assert.NotNil(t, td)
		}()
	}
	require.Eventually(t, func() bool { return inner.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedDirectory_CallerCancelDoesNotAbortSharedFetch(t *testing.T) {
	inner := &countingDirectory{
		release: make(chan struct{}),
		domains: map[string]*repository.TenantDomain{"acme": acmeDomain()},
	}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute)

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.FindActiveTenantDomainByOrigin(first, "acme")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		td  *repository.TenantDomain
		err error
	}
	second := make(chan result, 1)
	go func() {
		td, err := d.FindActiveTenantDomainByOrigin(context.Background(), "acme")
		second <- result{td, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(inner.release)
	res := <-second
	require.NoError(t, res.err)
	require.NotNil(t, res.td)
	assert.Equal(t, "td-1", res.td.ID)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedDirectory_FetchTimeout(t *testing.T) {
	inner := &countingDirectory{release: make(chan struct{})}
	d := NewCachedDirectory(inner, cache.NewMemory("", 0), time.Minute).WithFetchTimeout(20 * time.Millisecond)

	_, err := d.FindActiveTenantDomainByOrigin(context.Background(), "acme")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
