package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/stockledger/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the domain failure taxonomy onto HTTP statuses.
// Anything outside the taxonomy becomes a generic 500; its detail is
// only exposed when the debug flag is set.
func writeError(w http.ResponseWriter, log *slog.Logger, debug bool, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInactiveAccount),
		domain.IsConflict(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	default:
		log.Error("internal error", slog.String("error", err.Error()))
		message := "an unexpected error occurred"
		if debug {
			message = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: message})
		return
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
