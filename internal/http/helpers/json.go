// Package helpers utilidades compartidas por los controllers HTTP.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/mspportal/internal/http/errors"
)

// MaxJSONBody límite de los bodies de la API admin.
const MaxJSONBody = 64 << 10 // 64KB

// ReadJSON decodifica un body JSON estricto (sin campos desconocidos ni datos
// extra). Los errores ya son *httperrors.AppError listos para WriteError.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if ct != "" && !strings.Contains(ct, "application/json") {
		return httperrors.ErrInvalidJSON.WithDetail("se requiere Content-Type: application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return httperrors.ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return httperrors.ErrInvalidJSON.WithDetail("body vacío")
		default:
			return httperrors.ErrInvalidJSON.WithDetail(err.Error())
		}
	}
	if dec.More() {
		return httperrors.ErrInvalidJSON.WithDetail("sobran datos en el body")
	}
	return nil
}

// WriteJSON escribe v como JSON con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
