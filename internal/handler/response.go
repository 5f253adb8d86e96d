// Package handler provides the HTTP boundary for the Lendery API.
// Handlers decode requests, call services and render JSON; all business
// rules live in the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/service"
)

// messageResponse is the envelope for plain status messages and errors.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON renders v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage renders a plain {"message": ...} response.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeServiceError maps service and domain errors onto HTTP statuses:
// 401 for authorization failures, 404 for missing entities, 409 for
// uniqueness conflicts, 400 for invalid input and wrong-state
// transitions, 500 otherwise.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusUnauthorized

	case errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound

	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrDuplicateBook),
		errors.Is(err, service.ErrLockContention),
		errors.Is(err, domain.ErrInvalidImageURL):
		status = http.StatusConflict

	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrBookUnavailable),
		errors.Is(err, service.ErrOwnBook),
		errors.Is(err, service.ErrNoReservation),
		errors.Is(err, service.ErrAlreadyLentOut),
		errors.Is(err, service.ErrBookInUse),
		errors.Is(err, domain.ErrInvalidLendDuration):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Don't leak internals.
		message = service.ErrInternalError.Error()
	}

	writeMessage(w, status, message)
}
