package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/utsavhq/vendormatch/internal/tracing"
)

const idempotencyColumns = `key, method, route, vendor_id, response_hash, status, response_body, response_status_code, created_at`

// PostgresRepository implements Repository using PostgreSQL.
// Keys live in the request_idempotency table and are pruned by the cleanup job.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// Get implements Repository.
func (r *PostgresRepository) Get(ctx context.Context, key string) (record *IdempotencyKey, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "request_idempotency", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + idempotencyColumns + ` FROM request_idempotency WHERE key = $1`

	var (
		rec      IdempotencyKey
		vendorID sql.NullString
	)
	err = r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key, &rec.Method, &rec.Route, &vendorID,
		&rec.ResponseHash, &rec.Status, &rec.ResponseBody,
		&rec.ResponseStatusCode, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	if vendorID.Valid {
		rec.VendorID = &vendorID.String
	}
	return &rec, nil
}

// Store implements Repository. CreatedAt is stamped in UTC when zero so the
// cleanup cutoff comparison is timezone-stable.
func (r *PostgresRepository) Store(ctx context.Context, record *IdempotencyKey) (err error) {
	if err := ValidateKey(record.Key); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "request_idempotency", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO request_idempotency (key, method, route, vendor_id, response_hash, status, response_body, response_status_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		record.Key, record.Method, record.Route, nullableString(record.VendorID),
		record.ResponseHash, record.Status, record.ResponseBody,
		record.ResponseStatusCode, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrKeyExists
		}
		r.logger.Error("failed to store idempotency key",
			slog.String("key", record.Key),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// DeleteOlderThan implements Repository.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, duration time.Duration) (deleted int64, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "request_idempotency", tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	cutoff := time.Now().UTC().Add(-duration)

	result, err := r.db.ExecContext(ctx, `DELETE FROM request_idempotency WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old idempotency keys: %w", err)
	}

	deleted, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted idempotency keys: %w", err)
	}
	return deleted, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
