package admin

import (
	"context"

	"github.com/dropDatabas3/mspportal/internal/audit"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	dto "github.com/dropDatabas3/mspportal/internal/http/dto/admin"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// OrganizationService alta y listado mínimos de organizaciones.
type OrganizationService interface {
	List(ctx context.Context) ([]dto.OrganizationResponse, error)
	Create(ctx context.Context, req dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error)
}

type organizationService struct {
	orgs repository.OrganizationRepository
}

// NewOrganizationService crea el service.
func NewOrganizationService(orgs repository.OrganizationRepository) OrganizationService {
	return &organizationService{orgs: orgs}
}

func (s *organizationService) List(ctx context.Context) ([]dto.OrganizationResponse, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OrganizationResponse, len(orgs))
	for i, o := range orgs {
		out[i] = dto.OrganizationFrom(o)
	}
	return out, nil
}

func (s *organizationService) Create(ctx context.Context, req dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error) {
	org := &repository.Organization{ID: req.ID, Name: req.Name, Type: req.Type}
	org.Normalize()
	if err := org.Validate(); err != nil {
		return nil, err
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.OrganizationCreated, logger.OrganizationID(org.ID))
	res := dto.OrganizationFrom(*org)
	return &res, nil
}
