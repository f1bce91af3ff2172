// Package audit registra eventos de auditoría de las escrituras administrativas.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// Eventos de auditoría del directorio.
const (
	TenantDomainCreated = "tenant_domain.created"
	TenantDomainUpdated = "tenant_domain.updated"
	TenantDomainDeleted = "tenant_domain.deleted"
	AccessConfigUpdated = "access_config.updated"
	OrganizationCreated = "organization.created"
)

// Log escribe un evento de auditoría estructurado en el logger "audit",
// con el principal del contexto como actor.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	base := make([]zap.Field, 0, len(fields)+3)
	base = append(base, zap.String("event", event))
	if p := identity.FromContext(ctx); p != nil {
		base = append(base, zap.String("actor_id", p.ID), zap.Bool("actor_msp_admin", p.IsMSPAdmin))
	} else {
		base = append(base, zap.String("actor_id", "system"))
	}
	logger.From(ctx).Named("audit").Info("audit", append(base, fields...)...)
}
