package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/moynul/taptosell-server/internal/fees"
	"github.com/moynul/taptosell-server/internal/gateway"
	gatewaymocks "github.com/moynul/taptosell-server/internal/gateway/mocks"
	kafkamocks "github.com/moynul/taptosell-server/internal/infrastructure/kafka/mocks"
	redismocks "github.com/moynul/taptosell-server/internal/infrastructure/redis/mocks"
	"github.com/moynul/taptosell-server/internal/models"
	repositorymocks "github.com/moynul/taptosell-server/internal/repository/mocks"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPaymentService_Transfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transactionRepo := repositorymocks.NewMockTransactionRepository(ctrl)
	gw := gatewaymocks.NewMockPaymentGateway(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	calculator := fees.New(100)
	service := NewPaymentService(transactionRepo, gw, calculator, redisClient, kafkaProducer, 3, time.Millisecond)

	t.Run("successful transfer", func(t *testing.T) {
		var ref string
		transactionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, tx *models.Transaction) (int64, error) {
				ref = tx.Reference
				assert.Equal(t, models.StatusInitiated, tx.Status)
				assert.Equal(t, int64(10000), tx.Amount)
				assert.Equal(t, int64(100), tx.Fee)
				assert.Equal(t, int64(9900), tx.Net)
				return 1, nil
			})
		gw.EXPECT().Initiate(gomock.Any(), "+60123456789", "+60198765432", int64(10000), "p2p", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, _ int64, _, key string) (*gateway.Result, error) {
				assert.Equal(t, ref, key)
				return &gateway.Result{TransactionID: "GW001", Status: "success", Timestamp: time.Now()}, nil
			})
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInitiated, models.StatusCompleted, "GW001", gomock.Any()).
			Return(true, nil)
		kafkaProducer.EXPECT().Send(gomock.Any(), "transactions", gomock.Any(), gomock.Any()).Return(nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    10000,
			Service:   "p2p",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, result.Status)
		assert.Equal(t, ref, result.Reference)
		assert.Equal(t, "GW001", result.GatewayTxID)
		assert.Equal(t, int64(100), result.Fee)
		assert.Equal(t, int64(9900), result.Net)
		assert.Equal(t, 0, result.Retries)
	})

	t.Run("gateway unavailable twice then success keeps the same reference", func(t *testing.T) {
		var keys []string
		transactionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(2), nil)
		gw.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Times(3).
			DoAndReturn(func(_ context.Context, _, _ string, _ int64, _, key string) (*gateway.Result, error) {
				keys = append(keys, key)
				if len(keys) < 3 {
					return nil, pkgerrors.ErrGatewayUnavailable
				}
				return &gateway.Result{TransactionID: "GW002", Status: "success", Timestamp: time.Now()}, nil
			})
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInitiated, models.StatusCompleted, "GW002", gomock.Any()).
			Return(true, nil)
		kafkaProducer.EXPECT().Send(gomock.Any(), "transactions", gomock.Any(), gomock.Any()).Return(nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    5000,
			Service:   "p2p",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, result.Status)
		assert.Equal(t, 2, result.Retries)
		assert.Len(t, keys, 3)
		assert.Equal(t, keys[0], keys[1])
		assert.Equal(t, keys[0], keys[2])
	})

	t.Run("gateway rejection marks the transaction failed", func(t *testing.T) {
		transactionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(3), nil)
		gw.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, pkgerrors.ErrGatewayRejected)
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInitiated, models.StatusFailed, "", nil).
			Return(true, nil)
		kafkaProducer.EXPECT().Send(gomock.Any(), "transactions", gomock.Any(), gomock.Any()).Return(nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    5000,
			Service:   "p2p",
		})
		assert.ErrorIs(t, err, pkgerrors.ErrGatewayRejected)
		assert.Equal(t, models.StatusFailed, result.Status)
		assert.Equal(t, 0, result.Retries)
	})

	t.Run("timeout is never retried and lands in pending verification", func(t *testing.T) {
		transactionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(4), nil)
		gw.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Times(1).
			Return(nil, pkgerrors.ErrGatewayTimeout)
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInitiated, models.StatusPendingVerification, "", nil).
			Return(true, nil)
		kafkaProducer.EXPECT().Send(gomock.Any(), "transactions", gomock.Any(), gomock.Any()).Return(nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    5000,
			Service:   "p2p",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPendingVerification, result.Status)
		assert.Equal(t, 0, result.Retries)
	})

	t.Run("exhausted retries land in pending verification", func(t *testing.T) {
		transactionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(5), nil)
		gw.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Times(4).
			Return(nil, pkgerrors.ErrGatewayUnavailable)
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInitiated, models.StatusPendingVerification, "", nil).
			Return(true, nil)
		kafkaProducer.EXPECT().Send(gomock.Any(), "transactions", gomock.Any(), gomock.Any()).Return(nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    5000,
			Service:   "p2p",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPendingVerification, result.Status)
		assert.Equal(t, 3, result.Retries)
	})

	t.Run("invalid amount touches nothing", func(t *testing.T) {
		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    -100,
			Service:   "p2p",
		})
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Nil(t, result)
	})

	t.Run("transfer to self is rejected", func(t *testing.T) {
		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60123456789",
			Amount:    5000,
			Service:   "p2p",
		})
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Nil(t, result)
	})

	t.Run("duplicate request id is rejected", func(t *testing.T) {
		redisClient.EXPECT().SetNX(gomock.Any(), "request:req-42", "pending", 24*time.Hour).Return(false, nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    5000,
			Service:   "p2p",
			RequestID: "req-42",
		})
		assert.ErrorIs(t, err, pkgerrors.ErrRequestAlreadyProcessed)
		assert.Nil(t, result)
	})

	t.Run("fresh request id executes", func(t *testing.T) {
		redisClient.EXPECT().SetNX(gomock.Any(), "request:req-43", "pending", 24*time.Hour).Return(true, nil)
		transactionRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(6), nil)
		gw.EXPECT().Initiate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&gateway.Result{TransactionID: "GW003", Status: "success", Timestamp: time.Now()}, nil)
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInitiated, models.StatusCompleted, "GW003", gomock.Any()).
			Return(true, nil)
		kafkaProducer.EXPECT().Send(gomock.Any(), "transactions", gomock.Any(), gomock.Any()).Return(nil)

		result, err := service.Transfer(ctx, TransferRequest{
			FromPhone: "+60123456789",
			ToPhone:   "+60198765432",
			Amount:    5000,
			Service:   "p2p",
			RequestID: "req-43",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, result.Status)
	})
}

func TestPaymentService_VerifyTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transactionRepo := repositorymocks.NewMockTransactionRepository(ctrl)
	gw := gatewaymocks.NewMockPaymentGateway(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	service := NewPaymentService(transactionRepo, gw, fees.New(100), redisClient, kafkaProducer, 3, time.Millisecond)

	t.Run("already final transaction is returned untouched", func(t *testing.T) {
		tx := &models.Transaction{Reference: "TTS001", Status: models.StatusCompleted}
		transactionRepo.EXPECT().GetByReference(gomock.Any(), "TTS001").Return(tx, nil)

		got, err := service.VerifyTransfer(ctx, "TTS001")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("verified success resolves to completed", func(t *testing.T) {
		pending := &models.Transaction{Reference: "TTS002", Status: models.StatusPendingVerification}
		resolved := &models.Transaction{Reference: "TTS002", Status: models.StatusCompleted}

		transactionRepo.EXPECT().GetByReference(gomock.Any(), "TTS002").Return(pending, nil)
		gw.EXPECT().Verify(gomock.Any(), "TTS002").Return(&gateway.Verification{Status: "success", Verified: true}, nil)
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), "TTS002", models.StatusPendingVerification, models.StatusCompleted, "", gomock.Any()).
			Return(true, nil)
		transactionRepo.EXPECT().GetByReference(gomock.Any(), "TTS002").Return(resolved, nil)

		got, err := service.VerifyTransfer(ctx, "TTS002")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("unknown outcome resolves to failed", func(t *testing.T) {
		pending := &models.Transaction{Reference: "TTS003", Status: models.StatusPendingVerification}
		resolved := &models.Transaction{Reference: "TTS003", Status: models.StatusFailed}

		transactionRepo.EXPECT().GetByReference(gomock.Any(), "TTS003").Return(pending, nil)
		gw.EXPECT().Verify(gomock.Any(), "TTS003").Return(&gateway.Verification{Status: "unknown", Verified: false}, nil)
		transactionRepo.EXPECT().
			UpdateStatus(gomock.Any(), "TTS003", models.StatusPendingVerification, models.StatusFailed, "", nil).
			Return(true, nil)
		transactionRepo.EXPECT().GetByReference(gomock.Any(), "TTS003").Return(resolved, nil)

		got, err := service.VerifyTransfer(ctx, "TTS003")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
	})

	t.Run("unknown reference propagates not found", func(t *testing.T) {
		transactionRepo.EXPECT().GetByReference(gomock.Any(), "TTS404").Return(nil, pkgerrors.ErrTransactionNotFound)

		got, err := service.VerifyTransfer(ctx, "TTS404")
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.Nil(t, got)
	})
}

func TestPaymentService_Balance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transactionRepo := repositorymocks.NewMockTransactionRepository(ctrl)
	gw := gatewaymocks.NewMockPaymentGateway(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	service := NewPaymentService(transactionRepo, gw, fees.New(100), redisClient, kafkaProducer, 3, time.Millisecond)

	t.Run("valid phone", func(t *testing.T) {
		gw.EXPECT().CheckBalance(gomock.Any(), "+60123456789").
			Return(&gateway.Balance{Account: "+60123456789", Amount: 123456}, nil)

		amount, err := service.Balance(ctx, "+60123456789")
		assert.NoError(t, err)
		assert.Equal(t, int64(123456), amount)
	})

	t.Run("invalid phone", func(t *testing.T) {
		amount, err := service.Balance(ctx, "not-a-phone")
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Zero(t, amount)
	})
}
