package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// configs cubre los tres tipos de portal.
func configs() map[string]Config {
	p := newPolicy()
	client := clientTenant(&repository.TenantAccessConfig{AllowedModules: []string{"dashboard", "monitoring", "cloud"}, IsActive: true})
	return map[string]Config{
		"msp":      p.BuildConfig(p.Evaluate(EvaluationInput{Principal: admin, Hostname: "admin.x.io"}), nil),
		"client":   p.BuildConfig(p.Evaluate(EvaluationInput{Tenant: client}), client),
		"esn":      p.BuildConfig(p.Evaluate(EvaluationInput{Tenant: esnTenant()}), esnTenant()),
		"fallback": p.BuildConfig(p.Evaluate(EvaluationInput{}), nil),
	}
}

func TestCanAccess_MatchesAllowedModules(t *testing.T) {
	for name, cfg := range configs() {
		for _, m := range modules.Known {
			assert.Equal(t, modules.Contains(cfg.AllowedModules, m), CanAccess(cfg, m), "%s/%s", name, m)
		}
		assert.False(t, CanAccess(cfg, "not-a-module"), name)
	}
}

func TestPermission_ImpliesAccess(t *testing.T) {
	for name, cfg := range configs() {
		for _, m := range append(modules.Known, "unknown") {
			if Permission(cfg, m) != types.PermissionNone {
				assert.True(t, CanAccess(cfg, m), "%s/%s", name, m)
			}
		}
	}
}

func TestPermission_Levels(t *testing.T) {
	cfgs := configs()

	assert.Equal(t, types.PermissionAdmin, Permission(cfgs["msp"], "monitoring"))
	assert.Equal(t, types.PermissionAdmin, Permission(cfgs["msp"], "settings"))
	assert.Equal(t, types.PermissionNone, Permission(cfgs["msp"], "profile"))

	assert.Equal(t, types.PermissionRead, Permission(cfgs["client"], "monitoring"))
	assert.Equal(t, types.PermissionWrite, Permission(cfgs["client"], "cloud"))
	assert.Equal(t, types.PermissionNone, Permission(cfgs["client"], "users"))
}
