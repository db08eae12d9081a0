// Package health has the dependency probes behind the readiness endpoint.
// Each checker wraps one external dependency and reports whether it is
// currently reachable.
package health

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
)

// Checker reports the health of a single dependency. Callers bound the check
// with the context; implementations must return promptly once it is done.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// DBChecker probes Postgres over an existing connection pool.
type DBChecker struct {
	pool *sql.DB
}

func NewDBChecker(pool *sql.DB) *DBChecker {
	return &DBChecker{pool: pool}
}

// HealthCheck implements Checker by pinging the database.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	return c.pool.PingContext(ctx)
}

// RedisChecker probes Redis with a PING.
type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck implements Checker.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
