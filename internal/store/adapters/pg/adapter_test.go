package pg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/store"
)

func TestRegistered(t *testing.T) {
	_, ok := store.GetAdapter("postgres")
	assert.True(t, ok)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.True(t, repository.IsNotFound(mapError(pgx.ErrNoRows)))
	assert.True(t, repository.IsNotFound(mapError(fmt.Errorf("wrapped: %w", pgx.ErrNoRows))))

	unique := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "tenant_domains_domain_name_key"}
	assert.True(t, repository.IsConflict(mapError(unique)))

	fk := &pgconn.PgError{Code: codeForeignKeyViolation}
	assert.True(t, repository.IsInvalidInput(mapError(fk)))

	deps := fmt.Errorf("%w: x", repository.ErrHasDependents)
	assert.True(t, repository.IsHasDependents(mapError(deps)))

	other := errors.New("other")
	assert.Equal(t, other, mapError(other))
}

func TestOptional_WrappedNoRows(t *testing.T) {
	td, err := optional[repository.TenantDomain](nil, fmt.Errorf("scan tenant domain: %w", pgx.ErrNoRows))
	assert.NoError(t, err)
	assert.Nil(t, td)

	boom := errors.New("boom")
	_, err = optional[repository.TenantDomain](nil, boom)
	assert.Equal(t, boom, err)

	found := &repository.TenantDomain{ID: "td-1"}
	td, err = optional(found, nil)
	assert.NoError(t, err)
	assert.Same(t, found, td)
}
