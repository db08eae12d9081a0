package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig is a fixed-window quota. Both fields must be positive.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

func (c RateLimitConfig) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate limit of %d requests per window is not positive", c.RequestsPerWindow)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("rate limit window %s is not positive", c.WindowDuration)
	}
	return nil
}

var (
	defaultGlobalLimit = RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute}
	// Matching walks the full directory per request, so it gets a tighter budget.
	defaultMatchLimit = RateLimitConfig{RequestsPerWindow: 30, WindowDuration: time.Minute}
	defaultWriteLimit = RateLimitConfig{RequestsPerWindow: 20, WindowDuration: time.Minute}
)

// DefaultGlobalLimit is the baseline budget applied to every route.
func DefaultGlobalLimit() RateLimitConfig { return defaultGlobalLimit }

// DefaultMatchLimit is the tighter budget for the match endpoint.
func DefaultMatchLimit() RateLimitConfig { return defaultMatchLimit }

// DefaultWriteLimit is the budget for vendor create and update calls.
func DefaultWriteLimit() RateLimitConfig { return defaultWriteLimit }

// RateLimitStore tracks request counts per key. Implementations must be safe
// for concurrent use.
type RateLimitStore interface {
	// Allow records a request for key and reports whether it fits inside
	// config's window, how many requests remain, and, when blocked, whole
	// seconds until the window resets.
	Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining int, retryAfter int)
}

// bucket is one key's counter for the current window.
type bucket struct {
	count     int
	windowEnd time.Time
}

// InMemoryRateLimitStore is a fixed-window counter held in process memory.
// Per-process only; state is lost on restart.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{buckets: make(map[string]*bucket)}
}

// Allow implements RateLimitStore. The in-memory store never blocks, so ctx
// is ignored.
func (s *InMemoryRateLimitStore) Allow(_ context.Context, key string, config RateLimitConfig) (bool, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b, ok := s.buckets[key]
	if !ok || now.After(b.windowEnd) {
		s.buckets[key] = &bucket{count: 1, windowEnd: now.Add(config.WindowDuration)}
		return true, config.RequestsPerWindow - 1, 0
	}
	if b.count < config.RequestsPerWindow {
		b.count++
		return true, config.RequestsPerWindow - b.count, 0
	}

	// Clamp to at least one second so the value is always a valid Retry-After.
	retryAfter := int(b.windowEnd.Sub(now).Seconds())
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

// Cleanup drops buckets whose window has ended. Allow resets a key's bucket
// on its next request, but idle keys linger until this runs.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, b := range s.buckets {
		if now.After(b.windowEnd) {
			delete(s.buckets, key)
		}
	}
}

// KeyFunc derives the bucket key for a request, usually a client IP or a
// user ID.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys requests by client IP: the first X-Forwarded-For hop, then
// X-Real-IP, then RemoteAddr with the port stripped.
func IPKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// RemoteAddr with no port, as test servers set it.
			return r.RemoteAddr
		}
		return host
	}
}

// UserKeyFunc keys requests by authenticated user ID when the auth middleware
// has run, falling back to client IP. The prefixes keep the two namespaces
// from colliding.
func UserKeyFunc() KeyFunc {
	byIP := IPKeyFunc()
	return func(r *http.Request) string {
		if userID := GetUserID(r.Context()); userID != "" {
			return "user:" + userID
		}
		return "ip:" + byIP(r)
	}
}

// keyType classifies a rate limit key for metric labels.
func keyType(key string) string {
	if strings.HasPrefix(key, "user:") {
		return "user"
	}
	return "ip"
}

// RateLimitedRoutes reports whether the request is subject to rate limiting:
// match computations and vendor directory writes. Reads and probes are exempt.
func RateLimitedRoutes(r *http.Request) bool {
	if r.Method == http.MethodPost && r.URL.Path == "/match" {
		return true
	}
	return VendorMutations(r)
}

// When applies mw only to requests matched by predicate; everything else goes
// straight to the next handler.
func When(predicate func(*http.Request) bool, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if predicate(r) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter enforces config against the key extracted by keyFunc and
// answers 429 once the quota is spent. Every response carries
// X-RateLimit-Limit and X-RateLimit-Remaining; blocked responses add
// Retry-After in seconds and X-RateLimit-Reset as a Unix timestamp.
// A nil metrics value disables instrumentation.
func RateLimiter(store RateLimitStore, config RateLimitConfig, keyFunc KeyFunc, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			allowed, remaining, retryAfter := store.Allow(r.Context(), key, config)

			if metrics != nil {
				metrics.IncRateLimitRequests(normalizePath(r.URL.Path), keyType(key))
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				if metrics != nil {
					metrics.IncRateLimitBlocked(normalizePath(r.URL.Path), keyType(key))
				}
				SetErrorCode(r.Context(), "rate_limited")

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				reset := time.Now().Add(time.Duration(retryAfter) * time.Second).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
