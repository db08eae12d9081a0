package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/utsavhq/vendormatch/internal/idempotency"
)

// IdempotencyKeyHeader names the header clients send to make a write
// retryable.
const IdempotencyKeyHeader = "Idempotency-Key"

type idempotencyKeyContextKey struct{}

// SetIdempotencyKey returns a context carrying the request's idempotency key.
func SetIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyContextKey{}, key)
}

// GetIdempotencyKey returns the idempotency key from ctx, or "" when the
// request did not carry one.
func GetIdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(idempotencyKeyContextKey{}).(string); ok {
		return key
	}
	return ""
}

// replayRecorder tees the response body into a buffer while the embedded
// responseWriter tracks the status, so a completed response can be stored
// for replay.
type replayRecorder struct {
	*responseWriter
	body bytes.Buffer
}

func (rr *replayRecorder) Write(b []byte) (int, error) {
	rr.body.Write(b)
	return rr.responseWriter.Write(b)
}

// writeJSONError records the error code in the request scope and writes the
// standard error envelope. Middleware cannot use the api package's writer
// without an import cycle, so the envelope shape is duplicated here.
func writeJSONError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	SetErrorCode(ctx, code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]map[string]string{
		"error": {"code": code, "message": message},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// Idempotency returns middleware that makes POST requests to the given routes
// safe to retry. Requests must carry an Idempotency-Key header; the first 2xx
// response recorded for a key is replayed verbatim to every later request
// with the same key. Other methods and unlisted routes pass through untouched.
func Idempotency(repo idempotency.Repository, routes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !routes[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(IdempotencyKeyHeader)
			if code, message, ok := checkKey(key); !ok {
				writeJSONError(w, r.Context(), http.StatusBadRequest, code, message)
				return
			}

			ctx := SetIdempotencyKey(r.Context(), key)
			r = r.WithContext(ctx)

			existing, err := repo.Get(ctx, key)
			switch {
			case err == nil:
				replayStored(ctx, w, existing)
				return
			case !errors.Is(err, idempotency.ErrKeyNotFound):
				// Lookup failures fail open: the request runs once more
				// instead of being rejected, costing replay protection
				// rather than availability.
				slog.ErrorContext(ctx, "idempotency lookup failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			rec := &replayRecorder{responseWriter: newResponseWriter(w)}
			next.ServeHTTP(rec, r)
			storeForReplay(ctx, repo, r, key, rec)
		})
	}
}

// checkKey maps a header value to the error code and message the client
// sees. A missing key is reported separately from a malformed one.
func checkKey(key string) (code, message string, ok bool) {
	if key == "" {
		return "missing_idempotency_key", "Idempotency-Key header is required for this request", false
	}
	switch err := idempotency.ValidateKey(key); {
	case err == nil:
		return "", "", true
	case errors.Is(err, idempotency.ErrKeyTooLong):
		return "idempotency_key_too_long", "Idempotency-Key exceeds maximum length of 64 characters", false
	default:
		return "invalid_idempotency_key", "Invalid Idempotency-Key format", false
	}
}

// replayStored writes the recorded response for a key that already completed.
// The handler does not run again.
func replayStored(ctx context.Context, w http.ResponseWriter, rec *idempotency.IdempotencyKey) {
	slog.InfoContext(ctx, "replaying stored response", "key", rec.Key, "status", rec.ResponseStatusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rec.ResponseStatusCode)
	if _, err := io.WriteString(w, rec.ResponseBody); err != nil {
		slog.ErrorContext(ctx, "failed to write stored response", "key", rec.Key, "error", err)
	}
}

// storeForReplay persists a 2xx response under the request's key. Non-2xx
// responses are skipped so a failed write stays retryable with the same key.
func storeForReplay(ctx context.Context, repo idempotency.Repository, r *http.Request, key string, rec *replayRecorder) {
	if rec.statusCode < 200 || rec.statusCode >= 300 {
		return
	}

	body := rec.body.String()
	record := &idempotency.IdempotencyKey{
		Key:      key,
		Method:   r.Method,
		Route:    r.URL.Path,
		VendorID: vendorIDFromResponse(body),

		Status:             idempotency.StatusCompleted,
		ResponseStatusCode: rec.statusCode,
		ResponseBody:       body,
		ResponseHash:       idempotency.ComputeResponseHash(body),
	}

	// The response has already been sent, so a store failure only costs
	// replay protection for this key.
	if err := repo.Store(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to store idempotency record", "key", key, "error", err)
		return
	}
	slog.InfoContext(ctx, "stored idempotency record", "key", key, "status", rec.statusCode)
}

// vendorIDFromResponse pulls the created vendor's id out of the response body
// so replays can be tied back to the row they created.
func vendorIDFromResponse(body string) *string {
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &created); err != nil || created.ID == "" {
		return nil
	}
	return &created.ID
}
