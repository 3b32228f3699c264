package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paymitra/paymitra/internal/core_domain"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps domain sentinel errors onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	switch {
	case errors.Is(err, core_domain.ErrValidation), errors.Is(err, core_domain.ErrTemplate):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, core_domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, core_domain.ErrInvalidState):
		status = http.StatusConflict
		message = err.Error()
	}
	respondJSON(w, status, GenericErrorResponse{Error: message})
}
