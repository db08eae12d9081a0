package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath collapses dynamic URL segments into route patterns so that
// per-path metric labels stay bounded. /vendors/ven_0042 becomes
// /vendors/{id}; unknown paths pass through unchanged.
func normalizePath(path string) string {
	switch path {
	case "/", "/match", "/vendors", "/health", "/ready", "/metrics":
		return path
	}

	if id, ok := strings.CutPrefix(path, "/vendors/"); ok {
		if id != "" && !strings.Contains(id, "/") {
			return "/vendors/{id}"
		}
		return path
	}

	// pprof registers a small fixed set of sub-paths
	if strings.HasPrefix(path, "/debug/pprof") {
		return "/debug/pprof"
	}

	return path
}

// HTTPMetrics records duration, count, and request/response sizes for every
// request except the /health and /ready probes, which would otherwise
// dominate the series.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				rw.size,
			)
		})
	}
}
