package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/moynul/taptosell-server/internal/infrastructure/observability"
	"github.com/moynul/taptosell-server/internal/models"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const pgUniqueViolation = "23505"

type PostgresVendorRepository struct {
	db *sql.DB
}

func NewPostgresVendorRepository(db *sql.DB) *PostgresVendorRepository {
	return &PostgresVendorRepository{db: db}
}

func (r *PostgresVendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	var err error
	tracer := otel.Tracer("vendor-repository")
	ctx, span := tracer.Start(ctx, "CreateVendor")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateVendor", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateVendor").Observe(time.Since(start).Seconds())
	}()

	span.SetAttributes(attribute.String("phone", vendor.Phone))

	query := `INSERT INTO vendors (phone, name, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, vendor.Phone, vendor.Name, vendor.PasswordHash).
		Scan(&vendor.ID, &vendor.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			err = pkgerrors.ErrVendorExists
			slog.Warn("vendor already exists", "method", "Create", "phone", vendor.Phone)
			return err
		}
		slog.Error("failed to create vendor", "method", "Create", "phone", vendor.Phone, "error", err)
		return fmt.Errorf("failed to create vendor: %w", err)
	}

	slog.Info("vendor created", "method", "Create", "vendor_id", vendor.ID, "phone", vendor.Phone)
	return nil
}

func (r *PostgresVendorRepository) GetByID(ctx context.Context, id int64) (*models.Vendor, error) {
	var err error
	tracer := otel.Tracer("vendor-repository")
	ctx, span := tracer.Start(ctx, "GetVendorByID")
	span.SetAttributes(attribute.Int64("vendor_id", id))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetVendorByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetVendorByID").Observe(time.Since(start).Seconds())
	}()

	var v models.Vendor
	query := `SELECT id, phone, name, password_hash, created_at FROM vendors WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Phone, &v.Name, &v.PasswordHash, &v.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrVendorNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get vendor", "method", "GetByID", "vendor_id", id, "error", err)
		return nil, fmt.Errorf("failed to get vendor by id: %w", err)
	}
	return &v, nil
}

func (r *PostgresVendorRepository) GetByPhone(ctx context.Context, phone string) (*models.Vendor, error) {
	var err error
	tracer := otel.Tracer("vendor-repository")
	ctx, span := tracer.Start(ctx, "GetVendorByPhone")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetVendorByPhone", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetVendorByPhone").Observe(time.Since(start).Seconds())
	}()

	var v models.Vendor
	query := `SELECT id, phone, name, password_hash, created_at FROM vendors WHERE phone = $1`
	err = r.db.QueryRowContext(ctx, query, phone).Scan(&v.ID, &v.Phone, &v.Name, &v.PasswordHash, &v.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrVendorNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get vendor", "method", "GetByPhone", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get vendor by phone: %w", err)
	}
	return &v, nil
}
