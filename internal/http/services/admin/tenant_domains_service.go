package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/mspportal/internal/audit"
	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	dto "github.com/dropDatabas3/mspportal/internal/http/dto/admin"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// TenantDomainService operaciones administrativas sobre TenantDomain y su
// configuración de acceso.
type TenantDomainService interface {
	List(ctx context.Context, filter repository.TenantDomainFilter) ([]dto.TenantDomainResponse, error)
	Get(ctx context.Context, id string) (*dto.TenantDomainResponse, error)
	Create(ctx context.Context, req dto.CreateTenantDomainRequest) (*dto.TenantDomainResponse, error)
	Update(ctx context.Context, id string, req dto.UpdateTenantDomainRequest) (*dto.TenantDomainResponse, error)
	Delete(ctx context.Context, id string) error

	GetAccessConfig(ctx context.Context, id string) (*dto.AccessConfigResponse, error)
	PutAccessConfig(ctx context.Context, id string, req dto.AccessConfigRequest) (*dto.AccessConfigResponse, error)

	Resolve(ctx context.Context, domain string) (*dto.ResolveResponse, error)
}

type tenantDomainService struct {
	domains  repository.TenantDomainRepository
	configs  repository.AccessConfigRepository
	orgs     repository.OrganizationRepository
	resolver DomainResolver
	policy   types.DeletePolicy
}

// NewTenantDomainService crea el service.
func NewTenantDomainService(d Deps) TenantDomainService {
	return &tenantDomainService{
		domains:  d.Domains,
		configs:  d.AccessConfigs,
		orgs:     d.Organizations,
		resolver: d.Resolver,
		policy:   d.DeletePolicy,
	}
}

const componentTenantDomains = "admin.tenant_domains"

func (s *tenantDomainService) List(ctx context.Context, filter repository.TenantDomainFilter) ([]dto.TenantDomainResponse, error) {
	tds, err := s.domains.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TenantDomainResponse, len(tds))
	for i, td := range tds {
		out[i] = dto.TenantDomainFrom(td)
	}
	return out, nil
}

func (s *tenantDomainService) Get(ctx context.Context, id string) (*dto.TenantDomainResponse, error) {
	td, err := s.domains.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.TenantDomainFrom(*td)
	return &res, nil
}

func (s *tenantDomainService) Create(ctx context.Context, req dto.CreateTenantDomainRequest) (*dto.TenantDomainResponse, error) {
	ctx = logger.Enrich(ctx, logger.Layer("service"), logger.Component(componentTenantDomains), logger.Op("Create"))

	td := &repository.TenantDomain{
		DomainName:     req.DomainName,
		FullURL:        req.FullURL,
		OrganizationID: req.OrganizationID,
		TenantType:     req.TenantType,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := decodeBlobs(td, req.Branding, req.UIConfig); err != nil {
		return nil, err
	}
	td.Normalize()
	if err := td.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireOrganization(ctx, td.OrganizationID); err != nil {
		return nil, err
	}

	if err := s.domains.Create(ctx, td); err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.TenantDomainCreated, logger.TenantDomainID(td.ID), logger.DomainName(td.DomainName))
	res := dto.TenantDomainFrom(*td)
	return &res, nil
}

func (s *tenantDomainService) Update(ctx context.Context, id string, req dto.UpdateTenantDomainRequest) (*dto.TenantDomainResponse, error) {
	ctx = logger.Enrich(ctx, logger.Layer("service"), logger.Component(componentTenantDomains), logger.Op("Update"))

	td, err := s.domains.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DomainName != nil {
		td.DomainName = *req.DomainName
	}
	if req.FullURL != nil {
		td.FullURL = *req.FullURL
	}
	if req.OrganizationID != nil {
		td.OrganizationID = *req.OrganizationID
	}
	if req.TenantType != nil {
		td.TenantType = *req.TenantType
	}
	if req.IsActive != nil {
		td.IsActive = *req.IsActive
	}
	if err := decodeBlobs(td, req.Branding, req.UIConfig); err != nil {
		return nil, err
	}
	td.Normalize()
	if err := td.Validate(); err != nil {
		return nil, err
	}
	if req.OrganizationID != nil {
		if err := s.requireOrganization(ctx, td.OrganizationID); err != nil {
			return nil, err
		}
	}

	if err := s.domains.Update(ctx, td); err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.TenantDomainUpdated, logger.TenantDomainID(td.ID), logger.DomainName(td.DomainName))
	res := dto.TenantDomainFrom(*td)
	return &res, nil
}

func (s *tenantDomainService) Delete(ctx context.Context, id string) error {
	if err := s.domains.Delete(ctx, id, s.policy); err != nil {
		return err
	}
	audit.Log(ctx, audit.TenantDomainDeleted,
		logger.TenantDomainID(id),
		logger.String("delete_policy", string(s.policy)))
	return nil
}

func (s *tenantDomainService) GetAccessConfig(ctx context.Context, id string) (*dto.AccessConfigResponse, error) {
	cfg, err := s.configs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.AccessConfigFrom(*cfg)
	return &res, nil
}

func (s *tenantDomainService) PutAccessConfig(ctx context.Context, id string, req dto.AccessConfigRequest) (*dto.AccessConfigResponse, error) {
	mods, unknown := modules.Normalize(req.AllowedModules)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown modules %v", repository.ErrInvalidInput, unknown)
	}
	cfg := &repository.TenantAccessConfig{
		TenantDomainID:     id,
		AllowedModules:     mods,
		AccessRestrictions: req.AccessRestrictions,
		IsActive:           req.IsActive == nil || *req.IsActive,
	}
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.AccessConfigUpdated,
		logger.TenantDomainID(id),
		logger.Count(len(mods)))
	res := dto.AccessConfigFrom(*cfg)
	return &res, nil
}

func (s *tenantDomainService) Resolve(ctx context.Context, domain string) (*dto.ResolveResponse, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain is required", repository.ErrInvalidInput)
	}
	res, err := s.resolver.ResolveByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	out := &dto.ResolveResponse{Query: domain}
	if res == nil {
		return out, nil
	}
	td := dto.TenantDomainFrom(res.Domain)
	org := dto.OrganizationFrom(res.Organization)
	out.Matched, out.Domain, out.Organization = true, &td, &org
	if res.AccessConfig != nil {
		cfg := dto.AccessConfigFrom(*res.AccessConfig)
		out.AccessConfig = &cfg
	}
	if res.ConfigErr != nil {
		out.ConfigError = res.ConfigErr.Error()
	}
	return out, nil
}

func (s *tenantDomainService) requireOrganization(ctx context.Context, id string) error {
	_, err := s.orgs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: organization %q does not exist", repository.ErrInvalidInput, id)
	}
	return err
}

// decodeBlobs reemplaza branding/ui_config sólo si vinieron en el request.
func decodeBlobs(td *repository.TenantDomain, branding, ui map[string]any) error {
	if branding != nil {
		b, err := repository.DecodeBranding(branding)
		if err != nil {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
		td.Branding = b
	}
	if ui != nil {
		u, err := repository.DecodeUIConfig(ui)
		if err != nil {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
		td.UIConfig = u
	}
	return nil
}
