package portal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

var (
	admin    = &repository.Principal{ID: "u-admin", Email: "admin@msp.io", IsMSPAdmin: true}
	nonAdmin = &repository.Principal{ID: "u-1", Email: "user@acme.io"}
)

func newPolicy() *Policy {
	return NewPolicy(PolicyConfig{MSPOrigin: "https://console.msp.io", AdminHosts: []string{"ops.internal"}})
}

func clientTenant(cfg *repository.TenantAccessConfig) *repository.TenantResolution {
	return &repository.TenantResolution{
		Domain: repository.TenantDomain{
			ID: "td-acme", DomainName: "acme", OrganizationID: "org-acme",
			TenantType: types.TenantClient, IsActive: true,
		},
		Organization: repository.Organization{ID: "org-acme", Name: "Acme Corp", Type: types.OrganizationClient},
		AccessConfig: cfg,
	}
}

func esnTenant() *repository.TenantResolution {
	return &repository.TenantResolution{
		Domain: repository.TenantDomain{
			ID: "td-globex", DomainName: "globex", OrganizationID: "org-globex",
			TenantType: types.TenantESN, IsActive: true,
		},
		Organization: repository.Organization{ID: "org-globex", Name: "Globex", Type: types.OrganizationESN},
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	p := newPolicy()
	inputs := []EvaluationInput{
		{Principal: admin, Hostname: "admin.example.com"},
		{Tenant: clientTenant(nil), Principal: nonAdmin, Hostname: "acme.example.com"},
		{Tenant: esnTenant(), Principal: admin, Hostname: "globex.example.com"},
		{Principal: nil, Hostname: "random.example.com"},
	}
	for _, in := range inputs {
		first := p.Evaluate(in)
		for i := 0; i < 5; i++ {
			if diff := cmp.Diff(first, p.Evaluate(in)); diff != "" {
				t.Fatalf("Evaluate not deterministic (-first +again):\n%s", diff)
			}
		}
	}
}

func TestEvaluate_TenantWinsOverAdminFlag(t *testing.T) {
	det := newPolicy().Evaluate(EvaluationInput{
		Tenant:    clientTenant(nil),
		Principal: admin,
		Hostname:  "admin.example.com",
	})
	assert.Equal(t, types.PortalClient, det.PortalType)
	assert.False(t, det.UserAccess.HasAdminAccess)
	assert.False(t, det.UserAccess.CanSwitchOrganizations)
	require.NotNil(t, det.TenantInfo)
	assert.Equal(t, "Acme Corp", det.TenantInfo.OrganizationName)
}

func TestEvaluate_ESNDefaultModules(t *testing.T) {
	det := newPolicy().Evaluate(EvaluationInput{Tenant: esnTenant(), Principal: nonAdmin, Hostname: "globex.msp.io"})
	assert.Equal(t, types.PortalESN, det.PortalType)
	assert.ElementsMatch(t, []string{"dashboard", "users", "teams", "itsm", "monitoring", "applications"},
		det.UserAccess.AccessibleModules)
}

func TestEvaluate_ClientDefaultWhenConfigUnusable(t *testing.T) {
	for name, cfg := range map[string]*repository.TenantAccessConfig{
		"no row":   nil,
		"empty":    {AllowedModules: []string{}, IsActive: true},
		"inactive": {AllowedModules: []string{"dashboard"}, IsActive: false},
	} {
		det := newPolicy().Evaluate(EvaluationInput{Tenant: clientTenant(cfg), Principal: nonAdmin})
		assert.Equal(t, modules.ClientDefault, det.UserAccess.AccessibleModules, name)
	}
}

func TestEvaluate_NoTenantMSPAdmin(t *testing.T) {
	det := newPolicy().Evaluate(EvaluationInput{Principal: admin, Hostname: "admin.example.com"})

	assert.Equal(t, types.PortalMSPAdmin, det.PortalType)
	assert.True(t, det.IsMSPAdminPortal)
	assert.False(t, det.IsClientPortal)
	assert.True(t, det.UserAccess.HasAdminAccess)
	assert.True(t, det.UserAccess.CanSwitchOrganizations)
	assert.Nil(t, det.TenantInfo)

	want := []string{
		"dashboard", "organizations", "users", "teams", "roles", "rbac",
		"business-services", "applications", "deployments", "itsm", "security",
		"cloud", "monitoring", "tenant-management", "settings",
	}
	assert.ElementsMatch(t, want, det.UserAccess.AccessibleModules)
	assert.NotContains(t, det.UserAccess.AccessibleModules, "profile")
}

func TestEvaluate_FallbackWithoutAdminHostOrFlag(t *testing.T) {
	p := newPolicy()
	for _, in := range []EvaluationInput{
		{Principal: nonAdmin, Hostname: "admin.example.com"},
		{Principal: admin, Hostname: "shop.example.com"},
		{Principal: nil, Hostname: "localhost"},
	} {
		det := p.Evaluate(in)
		assert.Equal(t, types.PortalClient, det.PortalType, in.Hostname)
		assert.False(t, det.UserAccess.HasAdminAccess)
		assert.Equal(t, modules.Fallback, det.UserAccess.AccessibleModules)
	}
}

func TestEvaluate_DoesNotAliasGlobalSets(t *testing.T) {
	det := newPolicy().Evaluate(EvaluationInput{Principal: admin, Hostname: "localhost"})
	det.UserAccess.AccessibleModules[0] = "mutated"
	assert.Equal(t, "dashboard", modules.MSPAdmin[0])
}

func TestIsAdminHost(t *testing.T) {
	p := newPolicy()
	for host, want := range map[string]bool{
		"admin.example.com":          true,
		"https://admin.example.com/": true,
		"admin-eu.example.com":       true,
		"msp.example.com":            true,
		"msp-console.example.com":    true,
		"console.msp.io":             true,
		"ops.internal":               true,
		"localhost:3000":             true,
		"127.0.0.1":                  true,
		"acme.example.com":           false,
		"administrator.example.com":  false,
		"":                           false,
	} {
		assert.Equal(t, want, p.IsAdminHost(host), host)
	}
}
