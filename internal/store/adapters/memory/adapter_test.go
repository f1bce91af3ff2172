package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/store"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	b, err := os.ReadFile("testdata/seed.yaml")
	require.NoError(t, err)
	s := New()
	require.NoError(t, s.LoadYAML(b))
	return s
}

func TestAdapter_Registered(t *testing.T) {
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:     "memory",
		SeedFile: "testdata/seed.yaml",
	})
	require.NoError(t, err)
	require.NoError(t, conn.Ping(context.Background()))

	td, err := conn.Directory().FindActiveTenantDomainByOrigin(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, td)
	assert.Equal(t, "td-acme", td.ID)
}

func TestFindActiveTenantDomainByOrigin(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	td, err := s.FindActiveTenantDomainByOrigin(ctx, "acme.portal.example.com")
	require.NoError(t, err)
	require.NotNil(t, td)
	assert.Equal(t, "td-acme", td.ID)
	assert.Equal(t, "Acme", td.Branding.CompanyName)
	assert.Equal(t, "/acme.ico", td.Branding.Extra["favicon"])
	require.NotNil(t, td.UIConfig.ShowTeamSelector)
	assert.False(t, *td.UIConfig.ShowTeamSelector)

	// inactivo
	td, err = s.FindActiveTenantDomainByOrigin(ctx, "legacy")
	require.NoError(t, err)
	assert.Nil(t, td)

	td, err = s.FindActiveTenantDomainByOrigin(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, td)
}

func TestOrganizationTypeInvariant(t *testing.T) {
	org, err := seeded(t).GetOrganization(context.Background(), "org-msp")
	require.NoError(t, err)
	assert.True(t, org.IsMSP)

	_, err = seeded(t).GetOrganization(context.Background(), "nope")
	assert.True(t, repository.IsNotFound(err))
}

func TestFindAccessConfig_ScopedByOrganization(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	cfg, err := s.FindAccessConfig(ctx, "td-acme", "org-acme")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"dashboard", "users", "cloud"}, cfg.AllowedModules)

	cfg, err = s.FindAccessConfig(ctx, "td-acme", "org-esn")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = s.FindAccessConfig(ctx, "td-globex", "org-esn")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestTenantDomains_CreateConflictsAndValidation(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t).TenantDomains()

	td := &repository.TenantDomain{DomainName: "Beta", OrganizationID: "org-acme", IsActive: true}
	require.NoError(t, repo.Create(ctx, td))
	assert.NotEmpty(t, td.ID)
	assert.Equal(t, "beta", td.DomainName)
	assert.Equal(t, types.TenantClient, td.TenantType)

	err := repo.Create(ctx, &repository.TenantDomain{DomainName: "acme", OrganizationID: "org-acme"})
	assert.True(t, repository.IsConflict(err), "got %v", err)

	err = repo.Create(ctx, &repository.TenantDomain{DomainName: "gamma", OrganizationID: "missing"})
	assert.True(t, repository.IsInvalidInput(err), "got %v", err)

	err = repo.Create(ctx, &repository.TenantDomain{OrganizationID: "org-acme"})
	assert.True(t, repository.IsInvalidInput(err), "got %v", err)
}

func TestTenantDomains_DeletePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("block", func(t *testing.T) {
		s := seeded(t)
		err := s.TenantDomains().Delete(ctx, "td-acme", types.DeleteBlock)
		assert.True(t, repository.IsHasDependents(err), "got %v", err)
		_, err = s.TenantDomains().GetByID(ctx, "td-acme")
		require.NoError(t, err)
	})

	t.Run("cascade", func(t *testing.T) {
		s := seeded(t)
		require.NoError(t, s.TenantDomains().Delete(ctx, "td-acme", types.DeleteCascade))
		_, err := s.AccessConfigs().Get(ctx, "td-acme")
		assert.True(t, repository.IsNotFound(err))
	})

	t.Run("no dependents", func(t *testing.T) {
		s := seeded(t)
		require.NoError(t, s.TenantDomains().Delete(ctx, "td-globex", types.DeleteBlock))
		err := s.TenantDomains().Delete(ctx, "td-globex", types.DeleteBlock)
		assert.True(t, repository.IsNotFound(err))
	})
}

func TestAccessConfigs_Upsert(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	err := s.AccessConfigs().Upsert(ctx, &repository.TenantAccessConfig{
		TenantDomainID: "td-globex",
		AllowedModules: []string{" Dashboard ", "itsm", "dashboard"},
		IsActive:       true,
	})
	require.NoError(t, err)

	cfg, err := s.AccessConfigs().Get(ctx, "td-globex")
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard", "itsm"}, cfg.AllowedModules)
	assert.Equal(t, "org-esn", cfg.OrganizationID)

	err = s.AccessConfigs().Upsert(ctx, &repository.TenantAccessConfig{
		TenantDomainID: "td-globex",
		AllowedModules: []string{"payroll"},
	})
	assert.True(t, repository.IsInvalidInput(err))

	err = s.AccessConfigs().Upsert(ctx, &repository.TenantAccessConfig{TenantDomainID: "missing"})
	assert.True(t, repository.IsNotFound(err))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")

	s := seeded(t)
	s.snapshotFile = path
	require.NoError(t, s.Organizations().Create(ctx, &repository.Organization{ID: "org-new", Name: "New", Type: types.OrganizationClient}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.LoadYAML(b))
	orgs, err := restored.Organizations().List(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 4)

	td, err := restored.FindActiveTenantDomainByOrigin(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, td)
	assert.Equal(t, "/acme.ico", td.Branding.Extra["favicon"])
}

func TestLoad_RejectsUnknownModules(t *testing.T) {
	err := New().LoadYAML([]byte(`
organizations: [{id: o, name: O, type: client}]
tenant_domains: [{id: t, domain_name: t, organization_id: o, tenant_type: client, is_active: true}]
access_configs: [{tenant_domain_id: t, allowed_modules: [nope], is_active: true}]
`))
	require.Error(t, err)
}
