package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"audioshelf/internal/domain"
	"audioshelf/internal/observability"
)

// SuccessResponse is the success envelope; Message is a stable
// machine-readable code a client can translate.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the error envelope. Error carries a stable code string,
// Value optional detail; stack traces never leave the server.
type ErrorResponse struct {
	Error string `json:"error"`
	Value string `json:"value,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, SuccessResponse{Success: true, Message: message})
}

// writeData wraps a payload in a data envelope.
func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": v})
}

// writeError maps a domain error to a fixed status code and stable error
// code. Unknown errors become 500 and are logged with context, never
// serialized into the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "server--internal-error"

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, code = http.StatusBadRequest, "server-authentication--invalid-credentials"
	case errors.Is(err, domain.ErrAlreadyLoggedIn):
		status, code = http.StatusBadRequest, "server-authentication--already-logged-in"
	case errors.Is(err, domain.ErrNotLoggedIn):
		status, code = http.StatusUnauthorized, "server-authentication--not-logged-in"
	case errors.Is(err, domain.ErrNotAdmin):
		status, code = http.StatusForbidden, "server-authentication--not-admin"
	case errors.Is(err, domain.ErrBookNotFound):
		status, code = http.StatusNotFound, "server-books--not-found"
	case errors.Is(err, domain.ErrCoverNotFound):
		status, code = http.StatusNotFound, "server-books--no-cover"
	case errors.Is(err, domain.ErrFileNotFound):
		status, code = http.StatusNotFound, "server-files--not-found"
	case errors.Is(err, domain.ErrEntryNotFound):
		status, code = http.StatusNotFound, "server-library--entry-not-found"
	case errors.Is(err, domain.ErrUserNotFound):
		status, code = http.StatusNotFound, "server-users--not-found"
	case errors.Is(err, domain.ErrUsernameExists):
		status, code = http.StatusConflict, "server-users--username-taken"
	case errors.Is(err, domain.ErrInvalidList):
		status, code = http.StatusBadRequest, "server-library--invalid-list"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "server--invalid-input"
	}

	if status == http.StatusInternalServerError {
		observability.FromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err.Error())
	}

	writeJSON(w, status, ErrorResponse{Error: code})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "server--invalid-body"})
		return false
	}
	return true
}
