package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// accessLogEntry mirrors the fields Logging emits, for JSON assertions.
type accessLogEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Size      int64  `json:"size"`
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	ErrorCode string `json:"error_code"`
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// captureAccessLog serves one request through Logging and returns the parsed
// entry plus the raw log line.
func captureAccessLog(t *testing.T, handler http.HandlerFunc, req *http.Request) (accessLogEntry, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	rr := httptest.NewRecorder()
	Logging(newTestLogger(buf))(handler).ServeHTTP(rr, req)

	var entry accessLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parsing access log %q: %v", buf.String(), err)
	}
	return entry, buf.String()
}

func TestLogging_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name      string
		status    int // 0 means the handler never calls WriteHeader
		body      string
		errorCode string
		wantLevel string
		wantCode  string
	}{
		{"success", http.StatusOK, "hello", "", "INFO", ""},
		{"implicit 200", 0, "ok", "", "INFO", ""},
		{"client error", http.StatusBadRequest, `{"error":"validation failed"}`, "validation_error", "WARN", "validation_error"},
		{"server error", http.StatusInternalServerError, "", "internal_error", "ERROR", "internal_error"},
		{"error code suppressed on success", http.StatusOK, "ok", "some_code", "INFO", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				if tt.errorCode != "" {
					SetErrorCode(r.Context(), tt.errorCode)
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/match", nil)
			entry, raw := captureAccessLog(t, handler, req)

			wantStatus := tt.status
			if wantStatus == 0 {
				wantStatus = http.StatusOK
			}
			if entry.Status != wantStatus {
				t.Errorf("status = %d, want %d", entry.Status, wantStatus)
			}
			if entry.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", entry.Level, tt.wantLevel)
			}
			if entry.ErrorCode != tt.wantCode {
				t.Errorf("error_code = %q, want %q", entry.ErrorCode, tt.wantCode)
			}
			if tt.wantCode == "" && strings.Contains(raw, "error_code") {
				t.Errorf("error_code key should be absent, got %s", raw)
			}
			if entry.Size != int64(len(tt.body)) {
				t.Errorf("size = %d, want %d", entry.Size, len(tt.body))
			}
			if entry.Msg != "request completed" {
				t.Errorf("msg = %q, want \"request completed\"", entry.Msg)
			}
			if entry.Method != "POST" || entry.Path != "/match" {
				t.Errorf("method/path = %s %s, want POST /match", entry.Method, entry.Path)
			}
			if entry.LatencyMS < 0 {
				t.Errorf("latency_ms = %d, want >= 0", entry.LatencyMS)
			}
		})
	}
}

// TestLogging_FullRequestContext drives a request carrying every per-request
// field through RequestID and Logging at once.
func TestLogging_FullRequestContext(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := RequestID(Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetUserID(r.Context(), "planner_8f24")
		SetErrorCode(r.Context(), "auth_failed")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	})))

	req := httptest.NewRequest(http.MethodDelete, "/vendors/ven_0042", nil)
	req.Header.Set(RequestIDHeader, "req-id-789")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var entry accessLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parsing access log: %v", err)
	}

	entry.LatencyMS = 0
	want := accessLogEntry{
		Level:     "WARN",
		Msg:       "request completed",
		Method:    http.MethodDelete,
		Path:      "/vendors/ven_0042",
		Status:    http.StatusForbidden,
		Size:      int64(len(`{"error":"forbidden"}`)),
		RequestID: "req-id-789",
		UserID:    "planner_8f24",
		ErrorCode: "auth_failed",
	}
	if entry != want {
		t.Errorf("access log entry = %+v, want %+v", entry, want)
	}
}

func TestScopeAccessors(t *testing.T) {
	ctx := context.Background()

	if got := GetUserID(ctx); got != "" {
		t.Errorf("GetUserID on empty context = %q, want empty", got)
	}
	if got := GetErrorCode(ctx); got != "" {
		t.Errorf("GetErrorCode on empty context = %q, want empty", got)
	}

	ctx = SetUserID(ctx, "planner_8f24")
	ctx = SetErrorCode(ctx, "not_found")

	if got := GetUserID(ctx); got != "planner_8f24" {
		t.Errorf("GetUserID = %q, want planner_8f24", got)
	}
	if got := GetErrorCode(ctx); got != "not_found" {
		t.Errorf("GetErrorCode = %q, want not_found", got)
	}
}

func TestScope_SurvivesContextRewrapping(t *testing.T) {
	// Values set on a derived context must be visible through the original,
	// because middleware deeper in the chain rewraps the request.
	ctx := withScope(context.Background())
	derived := context.WithValue(ctx, struct{ k string }{"k"}, "v")

	SetErrorCode(derived, "rate_limited")
	SetUserID(derived, "planner_11aa")

	if code := GetErrorCode(ctx); code != "rate_limited" {
		t.Errorf("expected rate_limited through original context, got %q", code)
	}
	if userID := GetUserID(ctx); userID != "planner_11aa" {
		t.Errorf("expected planner_11aa through original context, got %q", userID)
	}
}

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError) // later calls are ignored

	if _, err := rw.Write([]byte("created ")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := rw.Write([]byte("ven_0042")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if rw.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want 201", rw.statusCode)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("underlying recorder code = %d, want 201", rec.Code)
	}
	if want := int64(len("created ven_0042")); rw.size != want {
		t.Errorf("size = %d, want %d", rw.size, want)
	}
	if got := rec.Body.String(); got != "created ven_0042" {
		t.Errorf("body = %q, want %q", got, "created ven_0042")
	}
}

func TestNewLogger_Format(t *testing.T) {
	if _, ok := NewLogger("info", "json").Handler().(*slog.JSONHandler); !ok {
		t.Error(`format "json" should build a JSON handler`)
	}
	if _, ok := NewLogger("info", "text").Handler().(*slog.TextHandler); !ok {
		t.Error(`format "text" should build a text handler`)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug}, // unknown levels fall back to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(tt.level, "text")
			ctx := context.Background()
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("level %s should be enabled at %v", tt.level, tt.enabled)
			}
			if logger.Enabled(ctx, tt.muted) {
				t.Errorf("level %s should not be enabled at %v", tt.level, tt.muted)
			}
		})
	}
}
