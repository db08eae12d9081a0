package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSnapshotKey is the Redis key the snapshot cache uses when the
// configuration does not name one.
const DefaultSnapshotKey = "vendormatch:directory:snapshot"

// SnapshotCache keeps the directory snapshot in Redis so match requests do
// not hit the database on every call. The cache fails open: every Redis or
// decode problem is treated as a miss and logged at warn level, never
// surfaced to callers.
type SnapshotCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewSnapshotCache creates a snapshot cache. A nil client disables caching
// (every Get is a miss); an empty key falls back to DefaultSnapshotKey.
func NewSnapshotCache(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *SnapshotCache {
	if key == "" {
		key = DefaultSnapshotKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached snapshot and whether it was present.
func (c *SnapshotCache) Get(ctx context.Context) ([]Vendor, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("snapshot cache read failed",
				slog.String("key", c.key),
				slog.String("error", err.Error()))
		}
		return nil, false
	}

	vendors, err := DecodeSnapshot(data)
	if err != nil {
		c.logger.Warn("snapshot cache entry undecodable, treating as miss",
			slog.String("key", c.key),
			slog.String("error", err.Error()))
		return nil, false
	}
	return vendors, true
}

// Set stores a snapshot under the cache key with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, vendors []Vendor) {
	if c.client == nil {
		return
	}

	data, err := EncodeSnapshot(vendors)
	if err != nil {
		c.logger.Warn("snapshot cache encode failed",
			slog.String("error", err.Error()))
		return
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write failed",
			slog.String("key", c.key),
			slog.String("error", err.Error()))
	}
}

// Invalidate drops the cached snapshot. Called after every directory write.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.logger.Warn("snapshot cache invalidation failed",
			slog.String("key", c.key),
			slog.String("error", err.Error()))
	}
}
