package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"worksheetd/internal/compute"
	"worksheetd/internal/manager"
	"worksheetd/internal/worksheet"
	"worksheetd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known service errors to HTTP status codes.
func statusForError(err error) int {
	var he HTTPError
	switch {
	case manager.IsWorksheetNotFound(err), worksheet.IsCellNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, worksheet.ErrNotOwned):
		return http.StatusBadRequest
	case errors.Is(err, worksheet.ErrCellComputing), errors.Is(err, worksheet.ErrCellQueued):
		return http.StatusConflict
	case compute.IsSpawnError(err), manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logFor(r).Error().Str("event", "request_error").Int("status", status).Err(err).Msg("request failed")
	}
	writeJSONError(w, status, err.Error())
}
