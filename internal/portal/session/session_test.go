package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/portal"
)

type resolverFunc func(ctx context.Context, host string) (*repository.TenantResolution, error)

func (f resolverFunc) ResolveFromOrigin(ctx context.Context, host string) (*repository.TenantResolution, error) {
	return f(ctx, host)
}

func tenantFor(id, domain string, tt types.TenantType) *repository.TenantResolution {
	return &repository.TenantResolution{
		Domain: repository.TenantDomain{
			ID: id, DomainName: domain, OrganizationID: "org-" + domain,
			TenantType: tt, IsActive: true,
		},
		Organization: repository.Organization{ID: "org-" + domain, Name: domain + " inc", Type: types.OrganizationClient},
	}
}

// tenantsByLabel resuelve "<label>.msp.io" al tenant <label>; el resto sin tenant.
func tenantsByLabel(labels ...string) resolverFunc {
	known := map[string]bool{}
	for _, l := range labels {
		known[l] = true
	}
	return func(_ context.Context, host string) (*repository.TenantResolution, error) {
		for l := range known {
			if host == l+".msp.io" {
				return tenantFor("td-"+l, l, types.TenantClient), nil
			}
		}
		return nil, nil
	}
}

func testPolicy() *portal.Policy {
	return portal.NewPolicy(portal.PolicyConfig{MSPOrigin: "https://admin.msp.io"})
}

var (
	admin = &repository.Principal{ID: "u-admin", IsMSPAdmin: true}
	user  = &repository.Principal{ID: "u-user"}
)

func TestNew_LoadingUntilFirstRefresh(t *testing.T) {
	s := New(tenantsByLabel("acme"), testPolicy(), "acme.msp.io", user)

	st := s.State()
	assert.True(t, st.Loading)
	assert.Nil(t, st.Config)
	_, ok := s.PortalConfig()
	assert.False(t, ok)
	assert.False(t, s.CanAccessModule("dashboard"))
	assert.Equal(t, types.PermissionNone, s.ModulePermission("dashboard"))

	require.NoError(t, s.Refresh(context.Background()))
	st = s.State()
	assert.False(t, st.Loading)
	require.NotNil(t, st.Config)
	assert.Equal(t, "acme", st.Config.TenantDomain)
	assert.Equal(t, "td-acme", s.TenantDomainID())
	assert.EqualValues(t, 1, st.Generation)
}

func TestRefresh_AdminOnAdminHost(t *testing.T) {
	s := New(tenantsByLabel(), testPolicy(), "admin.msp.io", admin)
	require.NoError(t, s.Refresh(context.Background()))

	det, ok := s.PortalDetection()
	require.True(t, ok)
	assert.Equal(t, types.PortalMSPAdmin, det.PortalType)
	assert.True(t, s.CanAccessModule("tenant-management"))
	assert.Equal(t, types.PermissionAdmin, s.ModulePermission("settings"))
	assert.Empty(t, s.TenantDomainID())
}

// Un refresh lento para el origen A termina después del refresh para B:
// el estado publicado debe ser el de B.
func TestRefresh_StaleResultIsDiscarded(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	base := tenantsByLabel("a", "b")
	r := resolverFunc(func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		if host == "a.msp.io" {
			close(started)
			<-release // ignora la cancelación a propósito
		}
		return base(ctx, host)
	})

	s := New(r, testPolicy(), "a.msp.io", user)
	errA := make(chan error, 1)
	go func() { errA <- s.Refresh(ctx) }()
	<-started

	require.NoError(t, s.SetOrigin(ctx, "b.msp.io"))
	close(release)

	require.ErrorIs(t, <-errA, ErrSuperseded)
	cfg, ok := s.PortalConfig()
	require.True(t, ok)
	assert.Equal(t, "b", cfg.TenantDomain)
	assert.Equal(t, "td-b", s.TenantDomainID())
	assert.False(t, s.State().Loading)
}

func TestRefresh_NewerRefreshCancelsInFlight(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	base := tenantsByLabel("a", "b")
	r := resolverFunc(func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		if host == "a.msp.io" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return base(ctx, host)
	})

	s := New(r, testPolicy(), "a.msp.io", user)
	errA := make(chan error, 1)
	go func() { errA <- s.Refresh(ctx) }()
	<-started

	require.NoError(t, s.SetOrigin(ctx, "b.msp.io"))
	select {
	case err := <-errA:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight refresh was not cancelled")
	}
	cfg, _ := s.PortalConfig()
	assert.Equal(t, "b", cfg.TenantDomain)
}

func TestRefresh_KeepsLastGoodConfigOnError(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	base := tenantsByLabel("acme")
	r := resolverFunc(func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		if fail.Load() {
			return nil, errors.New("directory down")
		}
		return base(ctx, host)
	})

	s := New(r, testPolicy(), "acme.msp.io", user)
	require.NoError(t, s.Refresh(ctx))

	fail.Store(true)
	require.Error(t, s.Refresh(ctx))

	st := s.State()
	assert.False(t, st.Loading)
	assert.Contains(t, st.Error, "directory down")
	require.NotNil(t, st.Config)
	assert.Equal(t, "acme", st.Config.TenantDomain)
	assert.EqualValues(t, 1, st.Generation)

	fail.Store(false)
	require.NoError(t, s.Refresh(ctx))
	assert.Empty(t, s.State().Error)
}

func TestRefresh_ConfigLoadFailurePublishesDefaults(t *testing.T) {
	r := resolverFunc(func(context.Context, string) (*repository.TenantResolution, error) {
		res := tenantFor("td-acme", "acme", types.TenantESN)
		res.ConfigErr = errors.New("config table unavailable")
		return res, nil
	})
	s := New(r, testPolicy(), "acme.msp.io", user)
	require.NoError(t, s.Refresh(context.Background()))

	st := s.State()
	assert.Contains(t, st.Error, "config table unavailable")
	require.NotNil(t, st.Detection)
	assert.Equal(t, types.PortalESN, st.Detection.PortalType)
	assert.True(t, s.CanAccessModule("itsm"))
	assert.False(t, s.CanAccessModule("settings"))
}

func TestClose_RejectsRefreshAndCommits(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	r := resolverFunc(func(context.Context, string) (*repository.TenantResolution, error) {
		close(started)
		<-release
		return nil, nil
	})
	s := New(r, testPolicy(), "x.msp.io", user)
	errc := make(chan error, 1)
	go func() { errc <- s.Refresh(ctx) }()
	<-started

	s.Close()
	close(release)
	require.ErrorIs(t, <-errc, ErrClosed)
	require.ErrorIs(t, s.Refresh(ctx), ErrClosed)
	_, ok := s.PortalConfig()
	assert.False(t, ok)
	s.Close()
}

func TestSetPrincipal_RefreshesOnlyOnChange(t *testing.T) {
	var calls atomic.Int32
	base := tenantsByLabel()
	r := resolverFunc(func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		calls.Add(1)
		return base(ctx, host)
	})
	ctx := context.Background()
	s := New(r, testPolicy(), "admin.msp.io", user)
	require.NoError(t, s.Refresh(ctx))

	require.NoError(t, s.SetPrincipal(ctx, &repository.Principal{ID: "u-user"}))
	assert.EqualValues(t, 1, calls.Load())

	require.NoError(t, s.SetPrincipal(ctx, admin))
	assert.EqualValues(t, 2, calls.Load())
	det, _ := s.PortalDetection()
	assert.True(t, det.IsMSPAdminPortal)

	require.NoError(t, s.SetOrigin(ctx, "admin.msp.io"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestSwitchToMSPPortal(t *testing.T) {
	s := New(tenantsByLabel("acme"), testPolicy(), "acme.msp.io", admin)
	url, ok := s.SwitchToMSPPortal()
	assert.True(t, ok)
	assert.Equal(t, "https://admin.msp.io", url)

	s = New(tenantsByLabel("acme"), testPolicy(), "acme.msp.io", user)
	_, ok = s.SwitchToMSPPortal()
	assert.False(t, ok)

	s = New(tenantsByLabel("acme"), portal.NewPolicy(portal.PolicyConfig{}), "acme.msp.io", admin)
	_, ok = s.SwitchToMSPPortal()
	assert.False(t, ok)
}

func TestReads_ReturnCopies(t *testing.T) {
	s := New(tenantsByLabel(), testPolicy(), "admin.msp.io", admin)
	require.NoError(t, s.Refresh(context.Background()))

	cfg, _ := s.PortalConfig()
	cfg.AllowedModules[0] = "hacked"
	det, _ := s.PortalDetection()
	det.UserAccess.AccessibleModules[0] = "hacked"

	assert.False(t, s.CanAccessModule("hacked"))
	again, _ := s.PortalDetection()
	assert.NotContains(t, again.UserAccess.AccessibleModules, "hacked")
}

func TestNeedsRefresh(t *testing.T) {
	s := New(tenantsByLabel(), testPolicy(), "x.msp.io", user)
	assert.True(t, s.NeedsRefresh(time.Minute))
	require.NoError(t, s.Refresh(context.Background()))
	assert.False(t, s.NeedsRefresh(time.Minute))
	assert.False(t, s.NeedsRefresh(0))

	s.MarkStale()
	assert.True(t, s.NeedsRefresh(time.Minute))
}

func TestFollow_AppliesIdentityChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := identity.NewStaticProvider(user)
	s := New(tenantsByLabel(), testPolicy(), "admin.msp.io", user)
	require.NoError(t, s.Refresh(ctx))

	done := make(chan struct{})
	go func() {
		s.Follow(ctx, sp)
		close(done)
	}()

	sp.Set(admin)
	require.Eventually(t, func() bool {
		det, ok := s.PortalDetection()
		return ok && det.IsMSPAdminPortal
	}, 2*time.Second, 10*time.Millisecond)

	sp.Set(nil)
	require.Eventually(t, func() bool {
		det, _ := s.PortalDetection()
		return s.Principal() == nil && !det.IsMSPAdminPortal
	}, 2*time.Second, 10*time.Millisecond)

	sp.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not stop after provider close")
	}
}

func TestMarkStale_DuringRefreshSurvivesCommit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	base := tenantsByLabel("acme")
	r := resolverFunc(func(ctx context.Context, host string) (*repository.TenantResolution, error) {
		close(started)
		<-release
		return base(ctx, host)
	})
	s := New(r, testPolicy(), "acme.msp.io", user)

	errc := make(chan error, 1)
	go func() { errc <- s.Refresh(context.Background()) }()
	<-started
	s.MarkStale()
	close(release)

	require.NoError(t, <-errc)
	_, ok := s.PortalConfig()
	require.True(t, ok)
	// el commit viene de un refresh anterior a la marca
	assert.True(t, s.NeedsRefresh(time.Hour))
}
