package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/moynul/taptosell-server/internal/models"
	repository "github.com/moynul/taptosell-server/internal/repository/postgres"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresTransactionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("NilTransaction", func(t *testing.T) {
		id, err := repo.Create(ctx, nil)
		assert.Equal(t, int64(0), id)
		assert.ErrorIs(t, err, pkgerrors.ErrNilTransaction)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		tx := &models.Transaction{
			Reference: "TTS20260829120000-abcdef012345",
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    10000,
			Fee:       100,
			Net:       9900,
			Service:   "p2p",
			Status:    "invalid",
		}
		id, err := repo.Create(ctx, tx)
		assert.Equal(t, int64(0), id)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		tx := &models.Transaction{
			Reference: "TTS20260829120000-abcdef012345",
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    0,
			Service:   "p2p",
			Status:    models.StatusInitiated,
		}
		id, err := repo.Create(ctx, tx)
		assert.Equal(t, int64(0), id)
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	})

	t.Run("Success", func(t *testing.T) {
		createdAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
		tx := &models.Transaction{
			Reference: "TTS20260829120000-abcdef012345",
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    10000,
			Fee:       100,
			Net:       9900,
			Service:   "p2p",
			Status:    models.StatusInitiated,
		}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions (reference, from_phone, to_phone, amount, fee, net, service, status)`)).
			WithArgs(tx.Reference, tx.FromPhone, tx.ToPhone, tx.Amount, tx.Fee, tx.Net, tx.Service, tx.Status).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), createdAt))

		id, err := repo.Create(ctx, tx)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, int64(42), tx.ID)
		assert.Equal(t, createdAt, tx.CreatedAt)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepository_GetByReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	columns := []string{"id", "reference", "from_phone", "to_phone", "amount", "fee", "net", "service", "status", "gateway_tx_id", "created_at", "completed_at"}

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, reference, from_phone, to_phone, amount, fee, net, service, status, gateway_tx_id, created_at, completed_at`)).
			WithArgs("TTS404").
			WillReturnError(sql.ErrNoRows)

		tx, err := repo.GetByReference(ctx, "TTS404")
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.Nil(t, tx)
	})

	t.Run("PendingRowHasNullCompletion", func(t *testing.T) {
		createdAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, reference, from_phone, to_phone, amount, fee, net, service, status, gateway_tx_id, created_at, completed_at`)).
			WithArgs("TTS001").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(int64(1), "TTS001", "+60123456789", "+60198765432", int64(10000), int64(100), int64(9900), "p2p", "pending_verification", nil, createdAt, nil))

		tx, err := repo.GetByReference(ctx, "TTS001")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPendingVerification, tx.Status)
		assert.Empty(t, tx.GatewayTxID)
		assert.Nil(t, tx.CompletedAt)
	})

	t.Run("CompletedRow", func(t *testing.T) {
		createdAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
		completedAt := createdAt.Add(2 * time.Second)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, reference, from_phone, to_phone, amount, fee, net, service, status, gateway_tx_id, created_at, completed_at`)).
			WithArgs("TTS002").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(int64(2), "TTS002", "+60123456789", "+60198765432", int64(10000), int64(100), int64(9900), "p2p", "completed", "GW001", createdAt, completedAt))

		tx, err := repo.GetByReference(ctx, "TTS002")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.Equal(t, "GW001", tx.GatewayTxID)
		assert.NotNil(t, tx.CompletedAt)
		assert.Equal(t, completedAt, *tx.CompletedAt)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("InvalidStatus", func(t *testing.T) {
		applied, err := repo.UpdateStatus(ctx, "TTS001", "bogus", models.StatusCompleted, "", nil)
		assert.False(t, applied)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
	})

	t.Run("Applied", func(t *testing.T) {
		completedAt := time.Date(2026, 8, 29, 12, 0, 2, 0, time.UTC)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE transactions SET status = $1`)).
			WithArgs(models.StatusCompleted, "GW001", completedAt, "TTS001", models.StatusInitiated).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.UpdateStatus(ctx, "TTS001", models.StatusInitiated, models.StatusCompleted, "GW001", &completedAt)
		assert.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("StatusAlreadyMoved", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE transactions SET status = $1`)).
			WithArgs(models.StatusFailed, "", nil, "TTS001", models.StatusPendingVerification).
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := repo.UpdateStatus(ctx, "TTS001", models.StatusPendingVerification, models.StatusFailed, "", nil)
		assert.NoError(t, err)
		assert.False(t, applied)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepository_ListByPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	columns := []string{"id", "reference", "from_phone", "to_phone", "amount", "fee", "net", "service", "status", "gateway_tx_id", "created_at", "completed_at"}
	createdAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE from_phone = $1 OR to_phone = $1 ORDER BY created_at DESC`)).
		WithArgs("+60123456789").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), "TTS002", "+60123456789", "+60198765432", int64(5000), int64(50), int64(4950), "p2p", "completed", "GW002", createdAt.Add(time.Minute), createdAt.Add(time.Minute)).
			AddRow(int64(1), "TTS001", "+60111111111", "+60123456789", int64(10000), int64(100), int64(9900), "p2p", "failed", nil, createdAt, nil))

	transactions, err := repo.ListByPhone(ctx, "+60123456789")
	assert.NoError(t, err)
	assert.Len(t, transactions, 2)
	assert.Equal(t, "TTS002", transactions[0].Reference)
	assert.Equal(t, "TTS001", transactions[1].Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}
