package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/mail-scheduler/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise. Store failures
// carry no sentinel and fall through to 500.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, domain.ErrMissingRecipient),
		errors.Is(err, domain.ErrMissingSendTime):
		respondError(w, http.StatusBadRequest, "email and send_time are required")
	case errors.Is(err, domain.ErrInvalidSendTime):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
