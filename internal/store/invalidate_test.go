package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/cache"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

type fakeDomains struct {
	byID map[string]repository.TenantDomain
}

func (f *fakeDomains) List(context.Context, repository.TenantDomainFilter) ([]repository.TenantDomain, error) {
	return nil, nil
}

func (f *fakeDomains) GetByID(_ context.Context, id string) (*repository.TenantDomain, error) {
	td, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &td, nil
}

func (f *fakeDomains) Create(_ context.Context, td *repository.TenantDomain) error {
	f.byID[td.ID] = *td
	return nil
}

func (f *fakeDomains) Update(_ context.Context, td *repository.TenantDomain) error {
	f.byID[td.ID] = *td
	return nil
}

func (f *fakeDomains) Delete(_ context.Context, id string, _ types.DeletePolicy) error {
	delete(f.byID, id)
	return nil
}

func TestInvalidation_RenameDropsOldAndNewKeys(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("", 0)
	inv := NewInvalidator(c, nil)

	var notified []string
	inv.OnChange(func(_ context.Context, id string) { notified = append(notified, id) })

	inner := &fakeDomains{byID: map[string]repository.TenantDomain{
		"td-1": {ID: "td-1", DomainName: "acme", FullURL: "https://acme.example.com", OrganizationID: "o"},
	}}
	repo := WithDomainInvalidation(inner, inv)

	for _, k := range []string{OriginKey("acme"), OriginKey("acme.example.com"), OriginKey("acme2"), ConfigKey("td-1"), OriginKey("other")} {
		require.NoError(t, c.Set(ctx, k, "x", 0))
	}

	require.NoError(t, repo.Update(ctx, &repository.TenantDomain{ID: "td-1", DomainName: "acme2", OrganizationID: "o"}))

	for _, k := range []string{OriginKey("acme"), OriginKey("acme.example.com"), OriginKey("acme2"), ConfigKey("td-1")} {
		_, err := c.Get(ctx, k)
		assert.True(t, cache.IsNotFound(err), "key %s should be gone", k)
	}
	_, err := c.Get(ctx, OriginKey("other"))
	assert.NoError(t, err, "unrelated keys survive")
	assert.Equal(t, []string{"td-1"}, notified)
}

func TestInvalidation_FailedWriteDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("", 0)
	inv := NewInvalidator(c, nil)
	repo := WithDomainInvalidation(&fakeDomains{byID: map[string]repository.TenantDomain{}}, inv)

	require.NoError(t, c.Set(ctx, OriginKey("acme"), "x", 0))
	err := repo.Delete(ctx, "missing", types.DeleteBlock)
	assert.True(t, repository.IsNotFound(err))

	_, err = c.Get(ctx, OriginKey("acme"))
	assert.NoError(t, err)
}

func TestInvalidation_PropagatesAcrossReplicas(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := cache.NewLocalBus()
	cacheA, cacheB := cache.NewMemory("", 0), cache.NewMemory("", 0)
	invA, invB := NewInvalidator(cacheA, bus), NewInvalidator(cacheB, bus)

	var mu sync.Mutex
	var gotB []string
	invB.OnChange(func(_ context.Context, id string) {
		mu.Lock()
		gotB = append(gotB, id)
		mu.Unlock()
	})
	invA.Listen(ctx)
	invB.Listen(ctx)

	require.NoError(t, cacheB.Set(ctx, ConfigKey("td-9"), "x", 0))
	require.NoError(t, invA.Invalidate(ctx, "td-9", ConfigKey("td-9")))

	require.Eventually(t, func() bool {
		_, err := cacheB.Get(ctx, ConfigKey("td-9"))
		return cache.IsNotFound(err)
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"td-9"}, gotB)
}

func TestMessageCodec(t *testing.T) {
	from, id, keys, ok := decodeMessage(encodeMessage("i1", "td-1", []string{"a", "b"}))
	require.True(t, ok)
	assert.Equal(t, "i1", from)
	assert.Equal(t, "td-1", id)
	assert.Equal(t, []string{"a", "b"}, keys)

	_, _, _, ok = decodeMessage("garbage")
	assert.False(t, ok)
}
