package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/moynul/taptosell-server/internal/models"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
)

// PostgresContentRepository stores marketplace listings. Plain reads and
// writes, no tracing or metrics instrumentation.
type PostgresContentRepository struct {
	db *sql.DB
}

func NewPostgresContentRepository(db *sql.DB) *PostgresContentRepository {
	return &PostgresContentRepository{db: db}
}

func (r *PostgresContentRepository) CreateListing(ctx context.Context, l *models.Listing) (int64, error) {
	query := `INSERT INTO listings (vendor_id, title, description, price) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, query, l.VendorID, l.Title, l.Description, l.Price).
		Scan(&l.ID, &l.CreatedAt); err != nil {
		slog.Error("failed to create listing", "vendor_id", l.VendorID, "error", err)
		return 0, fmt.Errorf("failed to create listing: %w", err)
	}
	return l.ID, nil
}

func (r *PostgresContentRepository) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var l models.Listing
	query := `SELECT id, vendor_id, title, description, price, created_at FROM listings WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&l.ID, &l.VendorID, &l.Title, &l.Description, &l.Price, &l.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &l, nil
}

func (r *PostgresContentRepository) UpdateListing(ctx context.Context, l *models.Listing) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET title = $1, description = $2, price = $3 WHERE id = $4`,
		l.Title, l.Description, l.Price, l.ID)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrListingNotFound
	}
	return nil
}

func (r *PostgresContentRepository) DeleteListing(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrListingNotFound
	}
	return nil
}

func (r *PostgresContentRepository) ListListings(ctx context.Context, vendorID int64) ([]models.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vendor_id, title, description, price, created_at FROM listings WHERE vendor_id = $1 ORDER BY created_at DESC`,
		vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.VendorID, &l.Title, &l.Description, &l.Price, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return out, nil
}
