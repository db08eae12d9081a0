package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkHTTPMetrics(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	run := func(b *testing.B, h http.Handler, path string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			h.ServeHTTP(httptest.NewRecorder(), req)
		}
	}

	b.Run("baseline", func(b *testing.B) {
		run(b, handler, "/match")
	})

	b.Run("instrumented", func(b *testing.B) {
		m, _ := newTestMetrics(b)
		run(b, HTTPMetrics(m)(handler), "/match")
	})

	b.Run("health excluded", func(b *testing.B) {
		m, _ := newTestMetrics(b)
		run(b, HTTPMetrics(m)(handler), "/health")
	})
}

func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/match",
		"/vendors",
		"/vendors/ven_01hq",
		"/vendors/550e8400-e29b-41d4-a716-446655440000",
		"/debug/pprof/heap",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		normalizePath(paths[i%len(paths)])
	}
}
