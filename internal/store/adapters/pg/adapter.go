// Package pg implementa el directorio de tenants sobre PostgreSQL (pgxpool).
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

var (
	_ store.AdapterConnection    = (*pgConnection)(nil)
	_ store.MigratableConnection = (*pgConnection)(nil)
)

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// Pool expone el pool para collectors de métricas.
func (c *pgConnection) Pool() *pgxpool.Pool { return c.pool }

// ─── Repositorios ───

func (c *pgConnection) Directory() repository.Directory {
	return &directory{pool: c.pool}
}
func (c *pgConnection) TenantDomains() repository.TenantDomainRepository {
	return &tenantDomainRepo{pool: c.pool}
}
func (c *pgConnection) AccessConfigs() repository.AccessConfigRepository {
	return &accessConfigRepo{pool: c.pool}
}
func (c *pgConnection) Organizations() repository.OrganizationRepository {
	return &organizationRepo{pool: c.pool}
}

// MigrationExecutor implementa store.MigratableConnection.
func (c *pgConnection) MigrationExecutor() store.MigrationExecutor {
	return &migrationExec{q: c.pool, pool: c.pool}
}

// ─── Migraciones ───

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type migrationExec struct {
	q    querier
	pool *pgxpool.Pool // nil dentro de una transacción
}

func (m *migrationExec) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := m.q.Exec(ctx, sql, args...)
	return err
}

func (m *migrationExec) QueryInts(ctx context.Context, sql string, args ...any) ([]int, error) {
	rows, err := m.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (m *migrationExec) InTx(ctx context.Context, fn func(store.MigrationExecutor) error) error {
	if m.pool == nil {
		return fn(m)
	}
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(&migrationExec{q: tx})
	})
}

// ─── Helpers ───

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapError traduce errores de pgx a los sentinels del repositorio.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return err
}

// nullIfEmpty retorna nil para strings vacíos (columnas opcionales).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
