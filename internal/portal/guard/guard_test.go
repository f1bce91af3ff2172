package guard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
)

func TestDecide_CoversEveryCombination(t *testing.T) {
	principals := map[string]*repository.Principal{
		"anonymous": nil,
		"user":      {ID: "u-1"},
		"admin":     {ID: "u-2", IsMSPAdmin: true},
	}
	want := map[string]Outcome{
		"true/anonymous":  Loading,
		"true/user":       Loading,
		"true/admin":      Loading,
		"false/anonymous": RedirectLogin,
		"false/user":      AccessDenied,
		"false/admin":     Render,
	}
	for _, loading := range []bool{true, false} {
		for name, p := range principals {
			key := fmt.Sprintf("%t/%s", loading, name)
			t.Run(key, func(t *testing.T) {
				got := Decide(Input{Loading: loading, Principal: p, Requirement: RequireMSPAdmin})
				assert.Equal(t, want[key], got)
			})
		}
	}
}

func TestDecide_AuthenticatedOnly(t *testing.T) {
	assert.Equal(t, Render, Decide(Input{Principal: &repository.Principal{ID: "u-1"}, Requirement: RequireAuthenticated}))
	assert.Equal(t, RedirectLogin, Decide(Input{Requirement: RequireAuthenticated}))
}

func TestDecide_ModuleRequirement(t *testing.T) {
	p := &repository.Principal{ID: "u-1"}
	mods := []string{"dashboard", "users"}

	assert.Equal(t, Render, Decide(Input{Principal: p, Requirement: RequireModule("users"), AccessibleModules: mods}))
	assert.Equal(t, AccessDenied, Decide(Input{Principal: p, Requirement: RequireModule("cloud"), AccessibleModules: mods}))
	assert.Equal(t, AccessDenied, Decide(Input{Principal: p, Requirement: RequireModule("cloud")}))
}
