// Package testutil provides shared database helpers for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/utsavhq/vendormatch/migrations"
)

const (
	testDBImage = "postgres:16-alpine"
	testDBName  = "vendormatch_test"
	testDBUser  = "vendormatch"
	testDBPass  = "vendormatch"
)

// NewTestDB returns an open connection to a fully migrated PostgreSQL
// database and registers its teardown with the test.
//
// When DATABASE_URL is set it is used directly, which keeps CI runs on a
// shared service container fast. Otherwise a throwaway postgres container is
// started via testcontainers and terminated when the test finishes. The test
// is skipped if neither is reachable.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		ctr, err := tcpostgres.Run(ctx, testDBImage,
			tcpostgres.WithDatabase(testDBName),
			tcpostgres.WithUsername(testDBUser),
			tcpostgres.WithPassword(testDBPass),
			tcpostgres.BasicWaitStrategies(),
		)
		testcontainers.CleanupContainer(t, ctr)
		if err != nil {
			t.Skipf("DATABASE_URL not set and postgres container unavailable: %v", err)
		}

		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to build container connection string: %v", err)
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}

	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return db
}

// Truncate empties the given tables between test cases that share a database.
func Truncate(t *testing.T, ctx context.Context, db *sql.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, `TRUNCATE `+table); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}
