package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mspportal/internal/domain/modules"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/domain/types"
	"github.com/dropDatabas3/mspportal/internal/util"
)

const domainColumns = `id, domain_name, COALESCE(full_url, ''), organization_id, tenant_type,
	is_active, branding, ui_config, created_at, updated_at`

func scanDomain(row pgx.Row) (*repository.TenantDomain, error) {
	var (
		td         repository.TenantDomain
		tenantType string
		branding   map[string]any
		ui         map[string]any
	)
	err := row.Scan(&td.ID, &td.DomainName, &td.FullURL, &td.OrganizationID, &tenantType,
		&td.IsActive, &branding, &ui, &td.CreatedAt, &td.UpdatedAt)
	if err != nil {
		return nil, err
	}
	td.TenantType = types.TenantType(tenantType)
	if td.Branding, err = repository.DecodeBranding(branding); err != nil {
		return nil, err
	}
	if td.UIConfig, err = repository.DecodeUIConfig(ui); err != nil {
		return nil, err
	}
	return &td, nil
}

func scanOrganization(row pgx.Row) (*repository.Organization, error) {
	var (
		org repository.Organization
		typ string
	)
	if err := row.Scan(&org.ID, &org.Name, &typ, &org.IsMSP, &org.CreatedAt); err != nil {
		return nil, err
	}
	org.Type = types.OrganizationType(typ)
	org.Normalize()
	return &org, nil
}

// ─── Directory ───

// optional convierte la ausencia de filas en (nil, nil), el contrato de los
// lookups del Directory.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

type directory struct{ pool *pgxpool.Pool }

func (d *directory) FindActiveTenantDomainByOrigin(ctx context.Context, origin string) (*repository.TenantDomain, error) {
	query := `SELECT ` + domainColumns + `
		FROM tenant_domains
		WHERE is_active AND (domain_name = $1 OR full_url_host = $1)
		ORDER BY id
		LIMIT 1`
	return optional(scanDomain(d.pool.QueryRow(ctx, query, origin)))
}

func (d *directory) FindAccessConfig(ctx context.Context, tenantDomainID, organizationID string) (*repository.TenantAccessConfig, error) {
	const query = `
		SELECT tenant_domain_id, organization_id, allowed_modules, access_restrictions, is_active, updated_at
		FROM tenant_access_configs
		WHERE tenant_domain_id = $1 AND ($2 = '' OR organization_id = $2)`
	return optional(scanAccessConfig(d.pool.QueryRow(ctx, query, tenantDomainID, organizationID)))
}

func (d *directory) GetOrganization(ctx context.Context, id string) (*repository.Organization, error) {
	const query = `SELECT id, name, type, is_msp, created_at FROM organizations WHERE id = $1`
	org, err := scanOrganization(d.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return org, nil
}

func (d *directory) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// ─── OrganizationRepository ───

type organizationRepo struct{ pool *pgxpool.Pool }

func (r *organizationRepo) List(ctx context.Context) ([]repository.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, type, is_msp, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

func (r *organizationRepo) GetByID(ctx context.Context, id string) (*repository.Organization, error) {
	return (&directory{pool: r.pool}).GetOrganization(ctx, id)
}

func (r *organizationRepo) Create(ctx context.Context, org *repository.Organization) error {
	org.Normalize()
	if err := org.Validate(); err != nil {
		return err
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO organizations (id, name, type, is_msp, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, query, org.ID, org.Name, string(org.Type), org.IsMSP).Scan(&org.CreatedAt)
	return mapError(err)
}

// ─── TenantDomainRepository ───

type tenantDomainRepo struct{ pool *pgxpool.Pool }

func (r *tenantDomainRepo) List(ctx context.Context, f repository.TenantDomainFilter) ([]repository.TenantDomain, error) {
	query := `SELECT ` + domainColumns + `
		FROM tenant_domains
		WHERE ($1 = '' OR organization_id = $1) AND (NOT $2 OR is_active)
		ORDER BY domain_name`
	rows, err := r.pool.Query(ctx, query, f.OrganizationID, f.OnlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.TenantDomain
	for rows.Next() {
		td, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *td)
	}
	return out, rows.Err()
}

func (r *tenantDomainRepo) GetByID(ctx context.Context, id string) (*repository.TenantDomain, error) {
	query := `SELECT ` + domainColumns + ` FROM tenant_domains WHERE id = $1`
	td, err := scanDomain(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return td, nil
}

func (r *tenantDomainRepo) Create(ctx context.Context, td *repository.TenantDomain) error {
	td.Normalize()
	if err := td.Validate(); err != nil {
		return err
	}
	if td.ID == "" {
		td.ID = uuid.NewString()
	}
	return mapError(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := checkHostsFree(ctx, tx, td); err != nil {
			return err
		}
		const query = `
			INSERT INTO tenant_domains (id, domain_name, full_url, full_url_host, organization_id,
				tenant_type, is_active, branding, ui_config, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING created_at, updated_at`
		return tx.QueryRow(ctx, query,
			td.ID, td.DomainName, nullIfEmpty(td.FullURL), nullIfEmpty(util.NormalizeHost(td.FullURL)),
			td.OrganizationID, string(td.TenantType), td.IsActive,
			td.Branding.ToMap(), td.UIConfig.ToMap(),
		).Scan(&td.CreatedAt, &td.UpdatedAt)
	}))
}

func (r *tenantDomainRepo) Update(ctx context.Context, td *repository.TenantDomain) error {
	td.Normalize()
	if err := td.Validate(); err != nil {
		return err
	}
	return mapError(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := checkHostsFree(ctx, tx, td); err != nil {
			return err
		}
		const query = `
			UPDATE tenant_domains SET
				domain_name = $2, full_url = $3, full_url_host = $4, organization_id = $5,
				tenant_type = $6, is_active = $7, branding = $8, ui_config = $9, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`
		err := tx.QueryRow(ctx, query,
			td.ID, td.DomainName, nullIfEmpty(td.FullURL), nullIfEmpty(util.NormalizeHost(td.FullURL)),
			td.OrganizationID, string(td.TenantType), td.IsActive,
			td.Branding.ToMap(), td.UIConfig.ToMap(),
		).Scan(&td.CreatedAt, &td.UpdatedAt)
		if err != nil {
			return err
		}
		// la copia denormalizada sigue a la organización
		_, err = tx.Exec(ctx,
			`UPDATE tenant_access_configs SET organization_id = $2 WHERE tenant_domain_id = $1 AND organization_id <> $2`,
			td.ID, td.OrganizationID)
		return err
	}))
}

func (r *tenantDomainRepo) Delete(ctx context.Context, id string, policy types.DeletePolicy) error {
	return mapError(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM tenant_domains WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}

		var hasConfig bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tenant_access_configs WHERE tenant_domain_id = $1)`, id,
		).Scan(&hasConfig)
		if err != nil {
			return err
		}
		if hasConfig {
			if policy != types.DeleteCascade {
				return fmt.Errorf("%w: tenant domain %q has an access config", repository.ErrHasDependents, id)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM tenant_access_configs WHERE tenant_domain_id = $1`, id); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM tenant_domains WHERE id = $1`, id)
		return err
	}))
}

// checkHostsFree verifica que ningún otro dominio use los mismos hosts de lookup.
// Los índices únicos cubren cada columna; esto cubre el cruce domain_name/full_url_host.
func checkHostsFree(ctx context.Context, tx pgx.Tx, td *repository.TenantDomain) error {
	var other string
	err := tx.QueryRow(ctx, `
		SELECT id FROM tenant_domains
		WHERE id <> $1 AND (domain_name = ANY($2) OR full_url_host = ANY($2))
		LIMIT 1`, td.ID, td.LookupKeys(),
	).Scan(&other)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("%w: host already used by tenant domain %q", repository.ErrConflict, other)
	}
}

// ─── AccessConfigRepository ───

type accessConfigRepo struct{ pool *pgxpool.Pool }

func scanAccessConfig(row pgx.Row) (*repository.TenantAccessConfig, error) {
	var cfg repository.TenantAccessConfig
	err := row.Scan(&cfg.TenantDomainID, &cfg.OrganizationID, &cfg.AllowedModules,
		&cfg.AccessRestrictions, &cfg.IsActive, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *accessConfigRepo) Get(ctx context.Context, id string) (*repository.TenantAccessConfig, error) {
	const query = `
		SELECT tenant_domain_id, organization_id, allowed_modules, access_restrictions, is_active, updated_at
		FROM tenant_access_configs WHERE tenant_domain_id = $1`
	cfg, err := scanAccessConfig(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return cfg, nil
}

func (r *accessConfigRepo) Upsert(ctx context.Context, cfg *repository.TenantAccessConfig) error {
	mods, unknown := modules.Normalize(cfg.AllowedModules)
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown modules %v", repository.ErrInvalidInput, unknown)
	}
	cfg.AllowedModules = mods
	if cfg.AccessRestrictions == nil {
		cfg.AccessRestrictions = map[string]any{}
	}

	// organization_id se copia del TenantDomain; sin fila origen no hay upsert.
	const query = `
		INSERT INTO tenant_access_configs (tenant_domain_id, organization_id, allowed_modules,
			access_restrictions, is_active, updated_at)
		SELECT id, organization_id, $2, $3, $4, NOW() FROM tenant_domains WHERE id = $1
		ON CONFLICT (tenant_domain_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			allowed_modules = EXCLUDED.allowed_modules,
			access_restrictions = EXCLUDED.access_restrictions,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING organization_id, updated_at`
	err := r.pool.QueryRow(ctx, query,
		cfg.TenantDomainID, cfg.AllowedModules, cfg.AccessRestrictions, cfg.IsActive,
	).Scan(&cfg.OrganizationID, &cfg.UpdatedAt)
	return mapError(err)
}

func (r *accessConfigRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenant_access_configs WHERE tenant_domain_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
