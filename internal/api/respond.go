// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	"credit-approval/internal/common/errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondWithError maps a service error onto its HTTP status. Errors without
// a standard code are treated as internal.
func respondWithError(w http.ResponseWriter, err error) {
	if stdErr, ok := errors.AsStandard(err); ok {
		respondWithJSON(w, errors.HTTPStatus(stdErr.Code), errorResponse{
			Error:   string(stdErr.Code),
			Message: stdErr.Message,
			Details: stdErr.Details,
		})
		return
	}
	respondWithJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "INTERNAL",
		Message: "Internal server error",
	})
}

func respondValidationError(w http.ResponseWriter, details string) {
	respondWithError(w, errors.NewValidationError(details))
}
