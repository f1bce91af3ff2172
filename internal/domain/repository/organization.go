package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/mspportal/internal/domain/types"
)

// Organization es una organización del directorio (MSP, cliente o ESN).
type Organization struct {
	ID        string
	Name      string
	Type      types.OrganizationType
	IsMSP     bool
	CreatedAt time.Time
}

// Normalize aplica el invariante type == msp => is_msp.
func (o *Organization) Normalize() {
	if o.Type == types.OrganizationMSP {
		o.IsMSP = true
	}
}

// Validate verifica nombre y tipo. Los errores envuelven ErrInvalidInput.
func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	if !o.Type.IsValid() {
		return fmt.Errorf("%w: organization type %q", ErrInvalidInput, o.Type)
	}
	return nil
}

// OrganizationRepository operaciones mínimas sobre organizaciones.
// El CRUD completo es del colaborador externo; acá sólo lo necesario
// para mantener la integridad referencial de los TenantDomain.
type OrganizationRepository interface {
	List(ctx context.Context) ([]Organization, error)

	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Organization, error)

	// Create retorna ErrConflict si el ID ya existe.
	Create(ctx context.Context, org *Organization) error
}
