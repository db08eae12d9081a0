package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// scope carries per-request log fields that are set deeper in the handler
// chain than the logging middleware that reports them. It is installed once
// per request and mutated in place, so values survive context rewrapping.
type scope struct {
	userID    string
	errorCode string
}

// scopeKey is the context key for the request scope.
type scopeKey struct{}

func withScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{})
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// SetUserID records the authenticated caller's ID in the request scope. The
// auth middleware calls this after verifying the token.
func SetUserID(ctx context.Context, userID string) context.Context {
	if s := scopeFrom(ctx); s != nil {
		s.userID = userID
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &scope{userID: userID})
}

// GetUserID returns the caller ID recorded by SetUserID, or "".
func GetUserID(ctx context.Context) string {
	if s := scopeFrom(ctx); s != nil {
		return s.userID
	}
	return ""
}

// SetErrorCode records the machine-readable code of the error response being
// written, so the access log can say why a request failed.
func SetErrorCode(ctx context.Context, code string) context.Context {
	if s := scopeFrom(ctx); s != nil {
		s.errorCode = code
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &scope{errorCode: code})
}

// GetErrorCode returns the code recorded by SetErrorCode, or "".
func GetErrorCode(ctx context.Context) string {
	if s := scopeFrom(ctx); s != nil {
		return s.errorCode
	}
	return ""
}

// responseWriter captures the status and body size of a response on its way
// out. The access log, the HTTP metrics middleware, and the idempotency
// recorder all report from it.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader records the first status written. net/http sends only that
// one, so later calls are dropped.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// newResponseWriter wraps w, reporting 200 until WriteHeader says otherwise.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// NewLogger creates an slog.Logger with the given level and format.
// Format "json" is meant for production log pipelines; any other value
// gets a text handler for development.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// Logging writes one access log entry per request: method, path, status,
// latency, response size, plus the request ID, caller ID, and error code
// when set. It installs the request scope that SetUserID and SetErrorCode
// write into. Entries for 4xx responses log at WARN, 5xx at ERROR.
//
// The entry is written after the handler returns, so a panicking handler
// skips it; recovery middleware belongs outside Logging.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := withScope(r.Context())
			r = r.WithContext(ctx)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.Int64("size", rw.size),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if id := GetUserID(ctx); id != "" {
				attrs = append(attrs, slog.String("user_id", id))
			}
			if code := GetErrorCode(ctx); code != "" && rw.statusCode >= 400 {
				attrs = append(attrs, slog.String("error_code", code))
			}

			level := slog.LevelInfo
			switch {
			case rw.statusCode >= 500:
				level = slog.LevelError
			case rw.statusCode >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "request completed", attrs...)
		})
	}
}
