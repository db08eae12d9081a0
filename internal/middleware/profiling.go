package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig controls the pprof debug surface.
type ProfilingConfig struct {
	// Enabled exposes /debug/pprof/* when true. Development only; the
	// profiles leak memory contents and runtime internals.
	Enabled bool

	// Environment is double-checked so a stray flag cannot turn
	// profiling on in production.
	Environment string
}

// Profiling returns middleware that serves the net/http/pprof handlers under
// /debug/pprof/. With profiling disabled, or in a production environment, the
// wrapped handler is returned unchanged.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}
		switch config.Environment {
		case "production", "prod":
			slog.Error("refusing to enable profiling in production", "environment", config.Environment)
			return next
		}

		slog.Warn("pprof endpoints enabled", "environment", config.Environment, "path", "/debug/pprof/")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				next.ServeHTTP(w, r)
				return
			}
			switch r.URL.Path {
			case "/debug/pprof/cmdline":
				pprof.Cmdline(w, r)
			case "/debug/pprof/profile":
				pprof.Profile(w, r)
			case "/debug/pprof/symbol":
				pprof.Symbol(w, r)
			case "/debug/pprof/trace":
				pprof.Trace(w, r)
			default:
				// Index serves /debug/pprof/ itself and the named runtime
				// profiles (heap, goroutine, block, mutex, allocs).
				pprof.Index(w, r)
			}
		})
	}
}
