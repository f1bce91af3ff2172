package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/mspportal/internal/http/dto/health"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Version string
	// DirectoryCheck ping al directorio de tenants (crítico).
	DirectoryCheck func(ctx context.Context) error
	// CacheCheck ping al cache/redis (no crítico: el directorio se consulta directo).
	CacheCheck func(ctx context.Context) error
	// CacheKind "memory" | "redis"
	CacheKind string
	// ActiveSessions cantidad de sesiones de portal vivas.
	ActiveSessions func() int
	// Timeout por componente. Default 2s.
	Timeout time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus),
		Version:    s.deps.Version,
		Timestamp:  time.Now().UTC(),
	}

	hasErrors := false
	hasCriticalErrors := false

	// 1) Directorio (crítico)
	if s.deps.DirectoryCheck != nil {
		if err := s.ping(ctx, s.deps.DirectoryCheck); err != nil {
			response.Components["directory"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			hasCriticalErrors = true
			log.Error("directory unavailable", logger.Err(err))
		} else {
			response.Components["directory"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["directory"] = dto.HealthStatus{
			Status:  "error",
			Message: "directory not initialized",
		}
		hasCriticalErrors = true
	}

	// 2) Cache (no crítico)
	if s.deps.CacheCheck != nil {
		if err := s.ping(ctx, s.deps.CacheCheck); err != nil {
			response.Components["cache"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			hasErrors = true
			log.Error("cache unavailable", logger.Err(err))
		} else {
			response.Components["cache"] = dto.HealthStatus{Status: "ok", Message: s.deps.CacheKind}
		}
	} else {
		response.Components["cache"] = dto.HealthStatus{Status: "disabled"}
	}

	if s.deps.ActiveSessions != nil {
		response.ActiveSessions = s.deps.ActiveSessions()
	}

	// Status final
	if hasCriticalErrors {
		response.Status = "unavailable"
	} else if hasErrors {
		response.Status = "degraded"
	} else {
		response.Status = "ready"
	}

	return response
}

func (s *healthService) ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()
	return fn(ctx)
}
