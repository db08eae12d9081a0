// Package api implements the HTTP surface of the vendor matching service:
// route registration, the request handlers, and the shared error envelope.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utsavhq/vendormatch/internal/middleware"
)

// Error codes carried in the response envelope and surfaced in the access
// log's error_code field.
const (
	ErrCodeValidation    = "validation_error"
	ErrCodeAuthFailed    = "auth_failed"
	ErrCodeNotFound      = "not_found"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInternal      = "internal_error"
	ErrCodeForbidden     = "forbidden"
	ErrCodeConflict      = "conflict"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeDuplicateName = "duplicate_name"
)

// ErrorResponse is the envelope every error body uses:
// {"error": {"code": "...", "message": "..."}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the standard JSON error envelope with the given status.
// It also records code on the request's logging scope, so the access log line
// for the response carries an error_code field without any bookkeeping in the
// handler.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	middleware.SetErrorCode(ctx, code)

	body, err := json.Marshal(ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
