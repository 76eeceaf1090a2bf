package httpapi

import (
	"encoding/json"
	"net/http"

	"ggufplan/internal/arch"
	"ggufplan/internal/estimate"
	"ggufplan/internal/gguf"
	"ggufplan/internal/manager"
	"ggufplan/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known service errors to HTTP status codes.
// A missing model id or file is 404; a file that exists but cannot be
// sized is 422; everything else is a server fault.
func statusForError(err error) int {
	switch {
	case manager.IsModelNotFound(err), gguf.IsNotFound(err):
		return http.StatusNotFound
	case gguf.IsMalformed(err), arch.IsUnresolvable(err), estimate.IsInvalidParams(err):
		return http.StatusUnprocessableEntity
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
