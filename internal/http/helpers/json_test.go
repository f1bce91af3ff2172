package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/dropDatabas3/mspportal/internal/http/errors"
)

type payload struct {
	Name string `json:"name"`
}

func readBody(t *testing.T, body, ct string) (payload, error) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if ct != "" {
		r.Header.Set("Content-Type", ct)
	}
	var p payload
	err := ReadJSON(httptest.NewRecorder(), r, &p)
	return p, err
}

func TestReadJSON(t *testing.T) {
	p, err := readBody(t, `{"name":"acme"}`, "application/json")
	require.NoError(t, err)
	assert.Equal(t, "acme", p.Name)

	for name, tc := range map[string]struct{ body, ct string }{
		"unknown field": {`{"name":"a","x":1}`, "application/json"},
		"trailing data": {`{"name":"a"}{"name":"b"}`, "application/json"},
		"empty":         {``, "application/json"},
		"wrong type":    {`{"name":"a"}`, "text/plain"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := readBody(t, tc.body, tc.ct)
			var appErr *httperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		})
	}
}

func TestReadJSON_TooLarge(t *testing.T) {
	big := `{"name":"` + strings.Repeat("a", MaxJSONBody) + `"}`
	_, err := readBody(t, big, "application/json")
	var appErr *httperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.HTTPStatus)
}
