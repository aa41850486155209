package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"landledger/internal/ledger"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps ledger errors onto HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errEncrypted):
		return http.StatusConflict, "encrypted"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError writes err as JSON. Internal errors omit the description.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: code}
	if status != http.StatusInternalServerError {
		resp.Description = err.Error()
	}
	writeJSON(w, status, resp)
}
