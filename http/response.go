package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/edgestow"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the error response matching the error type.
//
// Every signed-URL verification failure collapses into the same generic
// access-denied response; which check failed goes to the log only, so the
// body never tells a probing client whether the signature was absent,
// stale, malformed, or wrong.
func HandleError(w http.ResponseWriter, err error) {
	if errors.Is(err, edgestow.ErrAccessDenied) {
		var authErr *edgestow.AuthError
		if errors.As(err, &authErr) {
			slog.Warn("access denied", "kind", authErr.Kind, "error", err)
		} else {
			slog.Warn("access denied", "error", err)
		}
		WriteError(w, http.StatusForbidden, "access_denied", "Access denied")
		return
	}

	slog.Error("request error", "error", err)

	if errors.Is(err, ErrUnauthorized) {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid admin token")
		return
	}

	if errors.Is(err, edgestow.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "Object not found")
		return
	}

	if errors.Is(err, edgestow.ErrUnsupported) {
		WriteError(w, http.StatusBadRequest, "unsupported", err.Error())
		return
	}

	if errors.Is(err, edgestow.ErrInvalidInput) {
		WriteError(w, http.StatusBadRequest, "invalid_input", inputReason(err))
		return
	}

	if errors.Is(err, edgestow.ErrUpstream) {
		WriteError(w, http.StatusBadGateway, "upstream_error", "Origin request failed")
		return
	}

	// Default internal error
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// inputReason surfaces the sanitizer's reason when the error carries one.
func inputReason(err error) string {
	var vErr *edgestow.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return "Invalid input"
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
