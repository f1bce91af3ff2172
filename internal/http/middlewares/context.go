package middlewares

import (
	"context"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/portal/session"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxOriginKey    ctxKey = "origin"
	ctxSessionKey   ctxKey = "portal_session"
	ctxInfoKey      ctxKey = "request_info"
)

// requestInfo datos que los middlewares internos reportan al de logging,
// que corre antes que ellos y loguea al final.
type requestInfo struct {
	origin string
	userID string
	email  string
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, ctxInfoKey, info)
}

func getRequestInfo(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(ctxInfoKey).(*requestInfo)
	return info
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// WithOriginValue inyecta el origen normalizado del request.
func WithOriginValue(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, ctxOriginKey, origin)
}

// WithSession inyecta la sesión de portal del request.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

// =================================================================================
// CONTEXT GETTERS
// =================================================================================

// GetRequestID retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// GetOrigin retorna el origen resuelto por WithOrigin ("" si no se aplicó).
func GetOrigin(ctx context.Context) string {
	s, _ := ctx.Value(ctxOriginKey).(string)
	return s
}

// GetPrincipal retorna el principal autenticado o nil.
func GetPrincipal(ctx context.Context) *repository.Principal {
	return identity.FromContext(ctx)
}

// GetSession retorna la sesión de portal o nil si WithPortalSession no se aplicó.
func GetSession(ctx context.Context) *session.Session {
	s, _ := ctx.Value(ctxSessionKey).(*session.Session)
	return s
}
