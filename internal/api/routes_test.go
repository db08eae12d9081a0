package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/utsavhq/vendormatch/internal/directory"
	"github.com/utsavhq/vendormatch/internal/match"
)

func newTestMux(t *testing.T) (*http.ServeMux, directory.Repository) {
	t.Helper()

	repo := directory.NewInMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	matcher := match.NewMatcher(nil, logger, nil)

	mux := NewMux(
		NewMatchHandlers(repo, nil, matcher),
		NewVendorHandlers(repo, nil),
		NewHealthHandlers(HealthHandlersConfig{}),
	)
	return mux, repo
}

// TestMux_RootBanner tests the service banner at the exact root path.
func TestMux_RootBanner(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"service":"vendormatch-api"`) {
		t.Errorf("expected service banner, got %s", w.Body.String())
	}
}

// TestMux_UnknownRoute tests the structured 404 for unregistered paths.
func TestMux_UnknownRoute(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/unknown/path", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v, body: %s", err, w.Body.String())
	}
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, resp.Error.Code)
	}
}

// TestMux_MethodNotAllowed tests that wrong verbs on known routes answer 405.
func TestMux_MethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/match"},
		{http.MethodPut, "/vendors"},
		{http.MethodPost, "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected status 405, got %d", w.Code)
			}
		})
	}
}

// TestMux_VendorPathParam tests that {id} routes thread the path value into
// the handlers.
func TestMux_VendorPathParam(t *testing.T) {
	mux, repo := newTestMux(t)

	v := &directory.Vendor{
		Name:     "Bloom & Petal",
		Category: directory.CategoryFlorist,
		Status:   directory.StatusActive,
	}
	if err := repo.Insert(context.Background(), v); err != nil {
		t.Fatalf("failed to insert vendor: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/vendors/"+v.ID, nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body: %s", w.Code, w.Body.String())
	}

	var got directory.Vendor
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != v.ID {
		t.Errorf("expected id %s, got %s", v.ID, got.ID)
	}
}

// TestMux_HealthRoutes tests the probe endpoints through the mux.
func TestMux_HealthRoutes(t *testing.T) {
	mux, _ := newTestMux(t)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, w.Code)
		}
	}
}
