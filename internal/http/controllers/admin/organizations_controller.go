package admin

import (
	"net/http"

	dto "github.com/dropDatabas3/mspportal/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/mspportal/internal/http/errors"
	"github.com/dropDatabas3/mspportal/internal/http/helpers"
	svc "github.com/dropDatabas3/mspportal/internal/http/services/admin"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
)

// OrganizationsController handles /v2/admin/organizations routes.
type OrganizationsController struct {
	service svc.OrganizationService
}

// NewOrganizationsController creates a new organizations controller.
func NewOrganizationsController(service svc.OrganizationService) *OrganizationsController {
	return &OrganizationsController{service: service}
}

// List handles GET /v2/admin/organizations
func (c *OrganizationsController) List(w http.ResponseWriter, r *http.Request) {
	items, err := c.service.List(r.Context())
	if err != nil {
		httperrors.WriteErrorCtx(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.OrganizationListResponse{Items: items})
}

// Create handles POST /v2/admin/organizations
func (c *OrganizationsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Organizations.Create"))

	var req dto.CreateOrganizationRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	org, err := c.service.Create(ctx, req)
	if err != nil {
		log.Warn("create failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, org)
}
