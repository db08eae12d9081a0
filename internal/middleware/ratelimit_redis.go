package middleware

import (
	"context"
	"math"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, so limits
// are shared across API instances. It uses a fixed window counter: INCR on
// every hit, with the first hit in a window setting the expiry.
//
// The store fails open. If Redis is unreachable the request is allowed with
// a full quota, and the failure is counted when metrics are attached.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// NewRedisRateLimitStoreWithMetrics creates a Redis-backed rate limit store
// that counts fail-open events on the given metrics.
func NewRedisRateLimitStoreWithMetrics(client *redis.Client, metrics *Metrics) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, metrics: metrics}
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return s.failOpen(config)
	}

	if count == 1 {
		// First hit in the window owns the expiry. PEXPIRE keeps
		// sub-second windows intact.
		if err := s.client.PExpire(ctx, key, config.WindowDuration).Err(); err != nil {
			return s.failOpen(config)
		}
	}

	if count <= int64(config.RequestsPerWindow) {
		return true, config.RequestsPerWindow - int(count), 0
	}

	retryAfter := 1
	if ttl, err := s.client.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
		retryAfter = int(math.Ceil(ttl.Seconds()))
	}
	return false, 0, retryAfter
}

func (s *RedisRateLimitStore) failOpen(config RateLimitConfig) (bool, int, int) {
	if s.metrics != nil {
		s.metrics.IncRateLimitRedisErrors()
	}
	return true, config.RequestsPerWindow, 0
}
