package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// writeServiceError maps domain errors to terse, specific statuses the
// polling/UI layer can render.  Only truly unexpected failures fall through
// to the bare internal_error response.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIdentityID),
		errors.Is(err, service.ErrInvalidCardID),
		errors.Is(err, service.ErrInvalidDisplayName):
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
	case errors.Is(err, service.ErrIdentityNotFound):
		writeError(w, http.StatusNotFound, "identity_not_found", err.Error())
	case errors.Is(err, service.ErrAlreadyBound):
		writeError(w, http.StatusConflict, "already_bound", err.Error())
	case errors.Is(err, service.ErrNoActiveSession):
		writeError(w, http.StatusConflict, "no_active_session", err.Error())
	case errors.Is(err, service.ErrCardAlreadyBound):
		writeError(w, http.StatusConflict, "card_already_bound", err.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
