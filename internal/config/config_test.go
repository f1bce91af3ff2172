package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, "memory", c.Cache.Kind)
	require.Equal(t, "block", c.Tenants.DeletePolicy)
	require.Equal(t, 3*time.Second, Duration(c.Portal.LookupTimeout, 0))
	require.Equal(t, 10000, c.Portal.MaxSessions)
}

func TestLoad_YAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  addr: ":9000"
portal:
  msp_origin: "https://admin.example.com"
  admin_hosts: ["ops.example.com"]
tenants:
  delete_policy: cascade
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("SERVER_ADDR", ":9100")
	t.Setenv("PORTAL_ADMIN_HOSTS", "a.example.com, b.example.com")
	t.Setenv("PORTAL_MAX_SESSIONS", "500")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", c.Server.Addr)
	require.Equal(t, "https://admin.example.com", c.Portal.MSPOrigin)
	require.Equal(t, []string{"a.example.com", "b.example.com"}, c.Portal.AdminHosts)
	require.Equal(t, "cascade", c.Tenants.DeletePolicy)
	require.Equal(t, 500, c.Portal.MaxSessions)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn": {"STORAGE_DRIVER": "postgres"},
		"redis without addr":   {"CACHE_KIND": "redis"},
		"bad delete policy":    {"TENANTS_DELETE_POLICY": "orphan"},
		"bad duration":         {"PORTAL_LOOKUP_TIMEOUT": "soon"},
		"unknown driver":       {"STORAGE_DRIVER": "mongo"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
		})
	}
}
