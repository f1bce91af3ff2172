package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/tenant"
)

func TestFromError_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		code string
		want int
	}{
		{fmt.Errorf("tenant domain x: %w", repository.ErrNotFound), "NOT_FOUND", http.StatusNotFound},
		{fmt.Errorf("%w: host taken", repository.ErrConflict), "CONFLICT", http.StatusConflict},
		{fmt.Errorf("%w: access config", repository.ErrHasDependents), "HAS_DEPENDENTS", http.StatusConflict},
		{fmt.Errorf("%w: bad module", repository.ErrInvalidInput), "INVALID_FORMAT", http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", tenant.ErrResolution), "TENANT_RESOLUTION_FAILED", http.StatusBadGateway},
		{fmt.Errorf("boom"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrForbidden), "FORBIDDEN", http.StatusForbidden},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
		assert.Equal(t, tc.want, got.HTTPStatus)
	}
}

func TestWithDetail_DoesNotMutateCatalog(t *testing.T) {
	e := ErrNotFound.WithDetail("td-1")
	assert.Equal(t, "td-1", e.Detail)
	assert.Empty(t, ErrNotFound.Detail)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrConflict.WithDetail("domain acme already exists"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body["code"])
	assert.Equal(t, "domain acme already exists", body["detail"])
}
