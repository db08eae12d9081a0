package directory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/utsavhq/vendormatch/internal/tracing"
)

const vendorColumns = `id, name, category, city, price_min, price_max, rating, status, available, tags, notes, phone, email, created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL with soft deletes.
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

// Insert stores a new vendor, assigning an ID if none is set. The duplicate
// name check and the insert run in one transaction so concurrent creates
// cannot both pass the check.
func (r *PostgresRepository) Insert(ctx context.Context, v *Vendor) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt = &now
	v.UpdatedAt = &now

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		r.logger.Error("failed to begin transaction",
			slog.String("error", err.Error()),
			slog.String("vendor_id", v.ID))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Always attempt rollback on function exit (no-op after successful commit)
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("failed to rollback transaction",
				slog.String("error", err.Error()))
		}
	}()

	var exists bool
	checkQuery := `
		SELECT EXISTS(
			SELECT 1 FROM vendors
			WHERE lower(btrim(name)) = lower(btrim($1)) AND deleted_at IS NULL
		)
	`
	if err := tx.QueryRowContext(ctx, checkQuery, v.Name).Scan(&exists); err != nil {
		r.logger.Error("failed to check vendor name",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to check vendor name: %w", err)
	}
	if exists {
		return ErrDuplicateName
	}

	insertQuery := `
		INSERT INTO vendors (id, name, category, city, price_min, price_max, rating, status, available, tags, notes, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		v.ID, v.Name, string(v.Category), nullString(v.City),
		v.PriceMin, v.PriceMax, v.Rating, string(v.Status), v.Available,
		pq.Array(v.Tags), nullString(v.Notes), nullString(v.Phone), nullString(v.Email),
		now, now)
	if err != nil {
		r.logger.Error("failed to insert vendor",
			slog.String("error", err.Error()),
			slog.String("vendor_id", v.ID))
		return fmt.Errorf("failed to insert vendor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("vendor inserted",
		slog.String("vendor_id", v.ID),
		slog.String("name", v.Name),
		slog.String("category", string(v.Category)))

	return nil
}

// Update replaces an existing vendor's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, v *Vendor) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	now := time.Now().UTC()
	v.UpdatedAt = &now

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		r.logger.Error("failed to begin transaction",
			slog.String("error", err.Error()),
			slog.String("vendor_id", v.ID))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("failed to rollback transaction",
				slog.String("error", err.Error()))
		}
	}()

	var exists bool
	checkQuery := `
		SELECT EXISTS(
			SELECT 1 FROM vendors
			WHERE lower(btrim(name)) = lower(btrim($1)) AND deleted_at IS NULL AND id::text <> $2
		)
	`
	if err := tx.QueryRowContext(ctx, checkQuery, v.Name, v.ID).Scan(&exists); err != nil {
		r.logger.Error("failed to check vendor name",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to check vendor name: %w", err)
	}
	if exists {
		return ErrDuplicateName
	}

	updateQuery := `
		UPDATE vendors
		SET name = $2, category = $3, city = $4, price_min = $5, price_max = $6,
		    rating = $7, status = $8, available = $9, tags = $10, notes = $11,
		    phone = $12, email = $13, updated_at = $14
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := tx.ExecContext(ctx, updateQuery,
		v.ID, v.Name, string(v.Category), nullString(v.City),
		v.PriceMin, v.PriceMax, v.Rating, string(v.Status), v.Available,
		pq.Array(v.Tags), nullString(v.Notes), nullString(v.Phone), nullString(v.Email),
		now)
	if err != nil {
		r.logger.Error("failed to update vendor",
			slog.String("error", err.Error()),
			slog.String("vendor_id", v.ID))
		return fmt.Errorf("failed to update vendor: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete soft-deletes a vendor by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	query := `UPDATE vendors SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to delete vendor",
			slog.String("error", err.Error()),
			slog.String("vendor_id", id))
		return fmt.Errorf("failed to delete vendor: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}

	r.logger.Info("vendor soft-deleted",
		slog.String("vendor_id", id))

	return nil
}

// GetByID retrieves a vendor by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (v *Vendor, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1 AND deleted_at IS NULL`

	v, err = scanVendor(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		r.logger.Error("failed to get vendor",
			slog.String("error", err.Error()),
			slog.String("vendor_id", id))
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return v, nil
}

// List retrieves vendors matching the filter, in creation order.
func (r *PostgresRepository) List(ctx context.Context, f Filter) (vendors []Vendor, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if f.Category != "" {
		args = append(args, string(f.Category))
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.City != "" {
		args = append(args, f.City)
		conditions = append(conditions, fmt.Sprintf("lower(btrim(city)) = lower(btrim($%d))", len(args)))
	}
	if f.Available != nil {
		args = append(args, *f.Available)
		conditions = append(conditions, fmt.Sprintf("available = $%d", len(args)))
	}

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	return r.queryVendors(ctx, query, args...)
}

// Snapshot retrieves the full directory in creation order.
func (r *PostgresRepository) Snapshot(ctx context.Context) (vendors []Vendor, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE deleted_at IS NULL ORDER BY created_at, id`
	return r.queryVendors(ctx, query)
}

// ExistsByName reports whether a vendor other than excludeID uses the name.
func (r *PostgresRepository) ExistsByName(ctx context.Context, name, excludeID string) (exists bool, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vendors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT EXISTS(
			SELECT 1 FROM vendors
			WHERE lower(btrim(name)) = lower(btrim($1)) AND deleted_at IS NULL AND id::text <> $2
		)
	`
	if err := r.db.QueryRowContext(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check vendor name: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) queryVendors(ctx context.Context, query string, args ...any) ([]Vendor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query vendors",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := make([]Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vendors: %w", err)
	}
	return vendors, nil
}

// scanVendor reads one vendor row from either a *sql.Row or *sql.Rows.
func scanVendor(row interface{ Scan(dest ...any) error }) (*Vendor, error) {
	var (
		v         Vendor
		city      sql.NullString
		priceMin  sql.NullFloat64
		priceMax  sql.NullFloat64
		notes     sql.NullString
		phone     sql.NullString
		email     sql.NullString
		tags      []string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&v.ID, &v.Name, &v.Category, &city, &priceMin, &priceMax,
		&v.Rating, &v.Status, &v.Available, pq.Array(&tags),
		&notes, &phone, &email, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	v.City = city.String
	if priceMin.Valid {
		v.PriceMin = &priceMin.Float64
	}
	if priceMax.Valid {
		v.PriceMax = &priceMax.Float64
	}
	v.Notes = notes.String
	v.Phone = phone.String
	v.Email = email.String
	v.Tags = tags
	v.CreatedAt = &createdAt
	v.UpdatedAt = &updatedAt

	return &v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
