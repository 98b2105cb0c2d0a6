package repository

import (
	"context"
	"time"

	"github.com/moynul/taptosell-server/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (int64, error)
	GetByReference(ctx context.Context, ref string) (*models.Transaction, error)
	// UpdateStatus transitions a transaction from one status to another
	// with compare-and-set semantics: it reports false when no row was in
	// the expected status, so concurrent writers cannot double-apply.
	UpdateStatus(ctx context.Context, ref string, from, to models.TransactionStatus, gatewayTxID string, completedAt *time.Time) (bool, error)
	ListByPhone(ctx context.Context, phone string) ([]models.Transaction, error)
}
