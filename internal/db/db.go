// Package db opens and configures the PostgreSQL connection pool shared by
// the API server and the migration tool.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Pool tuning applied to every connection the service opens. Idle connections
// are recycled so long-lived deployments survive server-side connection
// timeouts and failovers.
const (
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultConnMaxIdleTime = 5 * time.Minute
)

// connectTimeout bounds the startup ping.
const connectTimeout = 5 * time.Second

// Connect opens a PostgreSQL pool for the given URL, applies pool limits, and
// verifies the connection with a bounded ping. maxConns caps both open and
// in-use connections; values below one fall back to the driver default.
func Connect(ctx context.Context, databaseURL string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns > 0 {
		pool.SetMaxOpenConns(maxConns)
	}
	pool.SetMaxIdleConns(DefaultMaxIdleConns)
	pool.SetConnMaxLifetime(DefaultConnMaxLifetime)
	pool.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
