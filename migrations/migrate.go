// Package migrations embeds the SQL schema migrations and applies them
// in version order against a PostgreSQL database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed *.sql
var migrationFiles embed.FS

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"

	// advisoryLockID serializes migration runs against the same database.
	advisoryLockID int64 = 730441209
)

// Apply runs every pending up migration in version order. Applied versions
// are recorded in schema_migrations, so calling Apply again is a no-op.
// Safe to call from multiple processes: a session advisory lock serializes
// runs against the same database.
func Apply(ctx context.Context, db *sql.DB) error {
	versions, err := embeddedVersions(upSuffix)
	if err != nil {
		return err
	}

	conn, unlock, err := lockedConn(ctx, db)
	if err != nil {
		return err
	}
	defer unlock()

	if err := ensureVersionTable(ctx, conn); err != nil {
		return err
	}

	for _, version := range versions {
		var applied bool
		if err := conn.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
			version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			continue
		}

		if err := runMigration(ctx, conn, version+upSuffix,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return err
		}
		slog.Info("applied migration", "version", version)
	}
	return nil
}

// Rollback undoes the n most recently applied migrations using their down
// files, newest first. Rolling back more migrations than have been applied
// rolls back everything.
func Rollback(ctx context.Context, db *sql.DB, n int) error {
	if n <= 0 {
		return nil
	}

	conn, unlock, err := lockedConn(ctx, db)
	if err != nil {
		return err
	}
	defer unlock()

	if err := ensureVersionTable(ctx, conn); err != nil {
		return err
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, n)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan applied migration: %w", err)
		}
		versions = append(versions, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}

	for _, version := range versions {
		if err := runMigration(ctx, conn, version+downSuffix,
			`DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
			return err
		}
		slog.Info("rolled back migration", "version", version)
	}
	return nil
}

// Applied returns the recorded migration versions in apply order.
func Applied(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return versions, nil
}

// embeddedVersions lists the embedded migration versions carrying the given
// suffix, sorted ascending by their numeric filename prefix.
func embeddedVersions(suffix string) ([]string, error) {
	entries, err := migrationFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(versions)
	return versions, nil
}

// lockedConn pins a single connection and takes the migration advisory lock
// on it. Advisory locks are session scoped, so the lock and every statement
// that runs under it must share the connection.
func lockedConn(ctx context.Context, db *sql.DB) (*sql.Conn, func(), error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire migration conn: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockID); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("acquire migration lock: %w", err)
	}

	unlock := func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, advisoryLockID); err != nil {
			slog.Warn("failed to release migration lock", "error", err)
		}
		if err := conn.Close(); err != nil {
			slog.Warn("failed to close migration conn", "error", err)
		}
	}
	return conn, unlock, nil
}

func ensureVersionTable(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

// runMigration executes one migration file and the bookkeeping statement for
// it inside a single transaction, so a failed migration leaves no trace.
func runMigration(ctx context.Context, conn *sql.Conn, filename, recordQuery, version string) error {
	raw, err := migrationFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", filename, err)
	}
	stmts := strings.TrimSpace(string(raw))
	if stmts == "" {
		return fmt.Errorf("migration %s is empty", filename)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", filename, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("failed to rollback migration transaction", "migration", filename, "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, stmts); err != nil {
		return fmt.Errorf("exec migration %s: %w", filename, err)
	}
	if _, err := tx.ExecContext(ctx, recordQuery, version); err != nil {
		return fmt.Errorf("record migration %s: %w", filename, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", filename, err)
	}
	return nil
}
