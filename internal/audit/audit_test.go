package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

func TestLog_IncludesActor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	Log(ctx, TenantDomainDeleted, logger.TenantDomainID("td-1"))
	ctx = identity.WithPrincipal(ctx, &repository.Principal{ID: "u-root", IsMSPAdmin: true})
	Log(ctx, AccessConfigUpdated)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "audit", entries[0].LoggerName)

	first := entries[0].ContextMap()
	assert.Equal(t, TenantDomainDeleted, first["event"])
	assert.Equal(t, "system", first["actor_id"])
	assert.Equal(t, "td-1", first["tenant_domain_id"])

	second := entries[1].ContextMap()
	assert.Equal(t, "u-root", second["actor_id"])
	assert.Equal(t, true, second["actor_msp_admin"])
}
