package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"blogopen/internal/app"
)

type errorResponse struct {
	Ok      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Ok: false, Error: code, Message: msg})
}

// writeAppError maps application sentinel errors to stable error codes and
// HTTP statuses. Anything unmapped is a 500 and gets logged without leaking
// internals.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrEmailAndPasswordRequired),
		errors.Is(err, app.ErrMessageTextRequired):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, app.ErrSameRoleConversation):
		writeError(w, http.StatusBadRequest, "same_role_forbidden", err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, app.ErrRoleMismatch):
		writeError(w, http.StatusForbidden, "role_mismatch", err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// audit logs security-relevant events in one consistent shape.
func audit(event string, attrs ...any) {
	slog.Warn(event, attrs...)
}
