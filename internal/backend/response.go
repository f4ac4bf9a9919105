package backend

import (
	"encoding/json"
	"errors"
	"net/http"

	"campaignkit/internal/model"
)

// errorEnvelope matches what the transport client parses out of non-2xx
// responses.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeAPIError(w http.ResponseWriter, status int, code string, message string) {
	var envelope errorEnvelope
	envelope.Error.Code = code
	envelope.Error.Message = message
	writeJSON(w, status, envelope)
}

// writeError maps store and domain failures onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUserAlreadyExists):
		writeAPIError(w, http.StatusConflict, "ALREADY_EXISTS", "user already registered")
	case errors.Is(err, model.ErrUserNotFound):
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
	case errors.Is(err, model.ErrCampaignNotFound):
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "campaign not found")
	case errors.Is(err, model.ErrNoSession):
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	default:
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return false
	}
	return true
}
