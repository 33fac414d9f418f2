package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pickpoint/internal/database"
	"pickpoint/internal/service"
)

// APIError is the wire shape of every error response. The message is
// surfaced verbatim to the user by clients.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, APIError{Status: statusCode, Message: message})
}

// writeServiceError maps domain sentinels onto HTTP statuses. Unknown
// errors become 500 with a generic message so internals do not leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrLockerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrWrongPin),
		errors.Is(err, service.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyCollected),
		errors.Is(err, service.ErrPaymentExpired),
		errors.Is(err, service.ErrLockerUnavailable),
		errors.Is(err, database.ErrNoCompartment),
		errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
