package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	dto "github.com/dropDatabas3/mspportal/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/mspportal/internal/http/errors"
	"github.com/dropDatabas3/mspportal/internal/http/helpers"
	svc "github.com/dropDatabas3/mspportal/internal/http/services/admin"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// TenantDomainsController handles /v2/admin/tenant-domains routes.
type TenantDomainsController struct {
	service svc.TenantDomainService
}

// NewTenantDomainsController creates a new tenant domains controller.
func NewTenantDomainsController(service svc.TenantDomainService) *TenantDomainsController {
	return &TenantDomainsController{service: service}
}

// ─── Tenant Domains CRUD ───

// List handles GET /v2/admin/tenant-domains?organization_id=&active=
func (c *TenantDomainsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TenantDomains.List"))

	filter := repository.TenantDomainFilter{OrganizationID: r.URL.Query().Get("organization_id")}
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("active must be a boolean"))
			return
		}
		filter.OnlyActive = b
	}

	items, err := c.service.List(ctx, filter)
	if err != nil {
		log.Error("list failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TenantDomainListResponse{Items: items})
}

// Create handles POST /v2/admin/tenant-domains
func (c *TenantDomainsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TenantDomains.Create"))

	var req dto.CreateTenantDomainRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	created, err := c.service.Create(ctx, req)
	if err != nil {
		log.Warn("create failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, created)
}

// Get handles GET /v2/admin/tenant-domains/{id}
func (c *TenantDomainsController) Get(w http.ResponseWriter, r *http.Request) {
	td, err := c.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, td)
}

// Update handles PUT/PATCH /v2/admin/tenant-domains/{id}
func (c *TenantDomainsController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TenantDomains.Update"))

	var req dto.UpdateTenantDomainRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	updated, err := c.service.Update(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		log.Warn("update failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /v2/admin/tenant-domains/{id}
func (c *TenantDomainsController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TenantDomains.Delete"))

	if err := c.service.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		log.Warn("delete failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Access Config ───

// GetAccessConfig handles GET /v2/admin/tenant-domains/{id}/access-config
func (c *TenantDomainsController) GetAccessConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := c.service.GetAccessConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, cfg)
}

// PutAccessConfig handles PUT /v2/admin/tenant-domains/{id}/access-config
func (c *TenantDomainsController) PutAccessConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TenantDomains.PutAccessConfig"))

	var req dto.AccessConfigRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	cfg, err := c.service.PutAccessConfig(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		log.Warn("put access config failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, cfg)
}

// ─── Diagnóstico ───

// Resolve handles GET /v2/admin/tenant-domains/resolve?domain=
// A diferencia del portal, los fallos del directorio se reportan (502).
func (c *TenantDomainsController) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Resolve(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
