package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moynul/taptosell-server/internal/infrastructure/observability"
	"github.com/moynul/taptosell-server/internal/models"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresSubscriptionRepository struct {
	db *sql.DB
}

func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) (int64, error) {
	var err error
	tracer := otel.Tracer("subscription-repository")
	ctx, span := tracer.Start(ctx, "CreateSubscription")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateSubscription", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateSubscription").Observe(time.Since(start).Seconds())
	}()

	if sub == nil {
		err = pkgerrors.ErrNilSubscription
		slog.Error("failed to create subscription", "method", "Create", "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.Int64("vendor_id", sub.VendorID),
		attribute.String("plan_type", sub.PlanType),
		attribute.Int64("amount", sub.Amount),
	)

	// Insert and the duplicate-active check are one statement, so two
	// concurrent purchases for the same vendor cannot both win.
	query := `INSERT INTO subscriptions (vendor_id, plan_type, amount, start_date, end_date, status)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM subscriptions WHERE vendor_id = $1 AND status = 'active'
		)
		RETURNING id`
	var id int64
	err = r.db.QueryRowContext(ctx, query,
		sub.VendorID, sub.PlanType, sub.Amount, sub.StartDate, sub.EndDate, sub.Status,
	).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrActiveSubscriptionExists
		slog.Warn("vendor already has an active subscription", "method", "Create", "vendor_id", sub.VendorID)
		return 0, err
	}
	if err != nil {
		slog.Error("failed to create subscription", "method", "Create", "vendor_id", sub.VendorID, "error", err)
		return 0, fmt.Errorf("failed to create subscription: %w", err)
	}

	sub.ID = id
	slog.Info("subscription created", "method", "Create", "id", id, "vendor_id", sub.VendorID, "end_date", sub.EndDate)
	return id, nil
}

func (r *PostgresSubscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	var err error
	tracer := otel.Tracer("subscription-repository")
	ctx, span := tracer.Start(ctx, "GetSubscriptionByID")
	span.SetAttributes(attribute.Int64("subscription_id", id))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetSubscriptionByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetSubscriptionByID").Observe(time.Since(start).Seconds())
	}()

	var sub models.Subscription
	query := `SELECT id, vendor_id, plan_type, amount, start_date, end_date, status FROM subscriptions WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.VendorID, &sub.PlanType, &sub.Amount, &sub.StartDate, &sub.EndDate, &sub.Status,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrSubscriptionNotFound
		slog.Error("subscription not found", "method", "GetByID", "subscription_id", id)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get subscription", "method", "GetByID", "subscription_id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription by id: %w", err)
	}
	return &sub, nil
}

func (r *PostgresSubscriptionRepository) FindActive(ctx context.Context, vendorID int64) (*models.Subscription, error) {
	var err error
	tracer := otel.Tracer("subscription-repository")
	ctx, span := tracer.Start(ctx, "FindActiveSubscription")
	span.SetAttributes(attribute.Int64("vendor_id", vendorID))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("FindActiveSubscription", status).Inc()
		observability.RepositoryDuration.WithLabelValues("FindActiveSubscription").Observe(time.Since(start).Seconds())
	}()

	var sub models.Subscription
	query := `SELECT id, vendor_id, plan_type, amount, start_date, end_date, status
		FROM subscriptions WHERE vendor_id = $1 AND status = 'active'`
	err = r.db.QueryRowContext(ctx, query, vendorID).Scan(
		&sub.ID, &sub.VendorID, &sub.PlanType, &sub.Amount, &sub.StartDate, &sub.EndDate, &sub.Status,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrSubscriptionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to find active subscription", "method", "FindActive", "vendor_id", vendorID, "error", err)
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &sub, nil
}

func (r *PostgresSubscriptionRepository) UpdateStatus(ctx context.Context, id int64, from, to models.SubscriptionStatus) (bool, error) {
	var err error
	tracer := otel.Tracer("subscription-repository")
	ctx, span := tracer.Start(ctx, "UpdateSubscriptionStatus")
	span.SetAttributes(
		attribute.Int64("subscription_id", id),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("UpdateSubscriptionStatus", status).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdateSubscriptionStatus").Observe(time.Since(start).Seconds())
	}()

	if !models.ValidSubscriptionStatus(from) || !models.ValidSubscriptionStatus(to) {
		err = pkgerrors.ErrInvalidSubscriptionState
		slog.Error("invalid subscription status", "method", "UpdateStatus", "from", from, "to", to, "error", err)
		return false, err
	}

	var res sql.Result
	res, err = r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		slog.Error("failed to update subscription status", "method", "UpdateStatus", "subscription_id", id, "error", err)
		return false, fmt.Errorf("failed to update subscription status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	slog.Info("subscription status updated", "method", "UpdateStatus", "subscription_id", id, "from", from, "to", to, "applied", rows > 0)
	return rows > 0, nil
}

func (r *PostgresSubscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var err error
	tracer := otel.Tracer("subscription-repository")
	ctx, span := tracer.Start(ctx, "ListExpiredSubscriptions")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListExpiredSubscriptions", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListExpiredSubscriptions").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, vendor_id, plan_type, amount, start_date, end_date, status
		FROM subscriptions WHERE status = 'active' AND end_date < $1`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		slog.Error("failed to list expired subscriptions", "method", "ListExpired", "error", err)
		return nil, fmt.Errorf("failed to list expired subscriptions: %w", err)
	}
	defer rows.Close()

	var out []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err = rows.Scan(&sub.ID, &sub.VendorID, &sub.PlanType, &sub.Amount, &sub.StartDate, &sub.EndDate, &sub.Status); err != nil {
			slog.Error("failed to scan subscription", "method", "ListExpired", "error", err)
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return out, nil
}
