package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// RequestIDHeader carries the caller's correlation ID. The middleware echoes
// it into the response so clients can quote it when reporting a problem.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps caller-supplied request IDs.
const maxRequestIDLength = 64

// requestIDPattern matches IDs that are safe to echo into response headers
// and log lines.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type requestIDKey struct{}

// RequestID assigns every request an ID and makes it available via
// GetRequestID. A well-formed X-Request-ID header is kept so callers can
// correlate requests across services; a missing, oversized, or otherwise
// unsafe value is replaced with a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID reports whether a caller-supplied ID may be kept.
func validRequestID(id string) bool {
	return id != "" && len(id) <= maxRequestIDLength && requestIDPattern.MatchString(id)
}

// GetRequestID returns the request's ID, or "" outside the middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
