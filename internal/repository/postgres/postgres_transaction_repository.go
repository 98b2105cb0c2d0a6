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

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (int64, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return 0, err
	}

	if !models.ValidTransactionStatus(tx.Status) {
		err = pkgerrors.ErrInvalidTransactionStatus
		slog.Error("invalid transaction status", "method", "Create", "status", tx.Status, "error", err)
		return 0, err
	}

	if tx.Amount <= 0 {
		err = fmt.Errorf("%w: amount must be positive", pkgerrors.ErrValidation)
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount, "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.String("reference", tx.Reference),
		attribute.Int64("amount", tx.Amount),
		attribute.String("service", tx.Service),
		attribute.String("status", string(tx.Status)),
	)

	query := `INSERT INTO transactions (reference, from_phone, to_phone, amount, fee, net, service, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	var txID int64
	var createdAt time.Time
	err = r.db.QueryRowContext(ctx, query,
		tx.Reference, tx.FromPhone, tx.ToPhone, tx.Amount, tx.Fee, tx.Net, tx.Service, tx.Status,
	).Scan(&txID, &createdAt)
	if err != nil {
		slog.Error("failed to create transaction", "method", "Create", "reference", tx.Reference, "error", err)
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.ID = txID
	tx.CreatedAt = createdAt
	slog.Info("transaction created", "method", "Create", "id", tx.ID, "reference", tx.Reference, "status", tx.Status)
	return txID, nil
}

func (r *PostgresTransactionRepository) GetByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByReference")
	span.SetAttributes(attribute.String("reference", ref))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByReference", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByReference").Observe(time.Since(start).Seconds())
	}()

	var tx models.Transaction
	var gatewayTxID sql.NullString
	var completedAt sql.NullTime
	query := `SELECT id, reference, from_phone, to_phone, amount, fee, net, service, status, gateway_tx_id, created_at, completed_at
		FROM transactions WHERE reference = $1`
	err = r.db.QueryRowContext(ctx, query, ref).Scan(
		&tx.ID, &tx.Reference, &tx.FromPhone, &tx.ToPhone, &tx.Amount, &tx.Fee, &tx.Net,
		&tx.Service, &tx.Status, &gatewayTxID, &tx.CreatedAt, &completedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		slog.Error("transaction not found", "method", "GetByReference", "reference", ref)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction", "method", "GetByReference", "reference", ref, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	if gatewayTxID.Valid {
		tx.GatewayTxID = gatewayTxID.String
	}
	if completedAt.Valid {
		tx.CompletedAt = &completedAt.Time
	}
	return &tx, nil
}

func (r *PostgresTransactionRepository) UpdateStatus(ctx context.Context, ref string, from, to models.TransactionStatus, gatewayTxID string, completedAt *time.Time) (bool, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "UpdateTransactionStatus")
	span.SetAttributes(
		attribute.String("reference", ref),
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
		observability.RepositoryCalls.WithLabelValues("UpdateTransactionStatus", status).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdateTransactionStatus").Observe(time.Since(start).Seconds())
	}()

	if !models.ValidTransactionStatus(from) || !models.ValidTransactionStatus(to) {
		err = pkgerrors.ErrInvalidTransactionStatus
		slog.Error("invalid transaction status", "method", "UpdateStatus", "from", from, "to", to, "error", err)
		return false, err
	}

	query := `UPDATE transactions SET status = $1, gateway_tx_id = COALESCE(NULLIF($2, ''), gateway_tx_id), completed_at = $3
		WHERE reference = $4 AND status = $5`
	var res sql.Result
	res, err = r.db.ExecContext(ctx, query, to, gatewayTxID, completedAt, ref, from)
	if err != nil {
		slog.Error("failed to update transaction status", "method", "UpdateStatus", "reference", ref, "error", err)
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	slog.Info("transaction status updated", "method", "UpdateStatus", "reference", ref, "from", from, "to", to, "applied", rows > 0)
	return rows > 0, nil
}

func (r *PostgresTransactionRepository) ListByPhone(ctx context.Context, phone string) ([]models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactionsByPhone")
	span.SetAttributes(attribute.String("phone", phone))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactionsByPhone", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactionsByPhone").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, reference, from_phone, to_phone, amount, fee, net, service, status, gateway_tx_id, created_at, completed_at
		FROM transactions WHERE from_phone = $1 OR to_phone = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, phone)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListByPhone", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var gatewayTxID sql.NullString
		var completedAt sql.NullTime
		if err = rows.Scan(
			&tx.ID, &tx.Reference, &tx.FromPhone, &tx.ToPhone, &tx.Amount, &tx.Fee, &tx.Net,
			&tx.Service, &tx.Status, &gatewayTxID, &tx.CreatedAt, &completedAt,
		); err != nil {
			slog.Error("failed to scan transaction", "method", "ListByPhone", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if gatewayTxID.Valid {
			tx.GatewayTxID = gatewayTxID.String
		}
		if completedAt.Valid {
			tx.CompletedAt = &completedAt.Time
		}
		out = append(out, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}
