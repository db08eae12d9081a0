package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	AllowedOrigins   []string // explicit origin allowlist; empty disables CORS
	AllowedMethods   []string // defaults to GET, POST, PATCH, DELETE, OPTIONS
	AllowedHeaders   []string // defaults to Content-Type, Authorization, X-Request-ID, Idempotency-Key
	AllowCredentials bool
	MaxAge           int // preflight cache lifetime in seconds
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
)

// corsPolicy is CORSConfig resolved once at construction: origins in a set,
// header values pre-joined.
type corsPolicy struct {
	origins     map[string]struct{}
	methods     string
	headers     string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			p.origins[origin] = struct{}{}
		}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	p.methods = strings.Join(methods, ", ")
	p.headers = strings.Join(headers, ", ")

	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	_, ok := p.origins[origin]
	return ok
}

// CORS enforces an explicit origin allowlist; wildcards are not supported.
// Same-origin requests (no Origin header) pass through untouched, foreign
// origins get 403, and preflight OPTIONS requests are answered directly
// with 204. With an empty allowlist the middleware is inert.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if len(policy.origins) == 0 || origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !policy.allows(origin) {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if policy.credentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Allow-Methods and Allow-Headers only mean anything on preflight
			// responses, so actual requests carry just origin and credentials.
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", policy.methods)
				w.Header().Set("Access-Control-Allow-Headers", policy.headers)
				if policy.maxAge != "" {
					w.Header().Set("Access-Control-Max-Age", policy.maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
