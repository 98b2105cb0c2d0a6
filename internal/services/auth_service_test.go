package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kafkamocks "github.com/moynul/taptosell-server/internal/infrastructure/kafka/mocks"
	redismocks "github.com/moynul/taptosell-server/internal/infrastructure/redis/mocks"
	"github.com/moynul/taptosell-server/internal/models"
	repositorymocks "github.com/moynul/taptosell-server/internal/repository/mocks"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	vendorRepo := repositorymocks.NewMockVendorRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	service := NewAuthService(vendorRepo, redisClient, kafkaProducer, "secret")

	t.Run("successful registration", func(t *testing.T) {
		vendorRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, v *models.Vendor) error {
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(v.PasswordHash), []byte("s3cret")))
				v.ID = 5
				return nil
			})
		kafkaProducer.EXPECT().Send(gomock.Any(), "vendors", "5", gomock.Any()).Return(nil)

		vendor, err := service.Register(ctx, "+60123456789", "Kedai Maju", "s3cret")
		assert.NoError(t, err)
		assert.Equal(t, int64(5), vendor.ID)
	})

	t.Run("duplicate phone", func(t *testing.T) {
		vendorRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pkgerrors.ErrVendorExists)

		vendor, err := service.Register(ctx, "+60123456789", "Kedai Maju", "s3cret")
		assert.ErrorIs(t, err, pkgerrors.ErrVendorExists)
		assert.Nil(t, vendor)
	})

	t.Run("invalid phone", func(t *testing.T) {
		vendor, err := service.Register(ctx, "nope", "Kedai Maju", "s3cret")
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Nil(t, vendor)
	})

	t.Run("empty password", func(t *testing.T) {
		vendor, err := service.Register(ctx, "+60123456789", "Kedai Maju", "")
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Nil(t, vendor)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	vendorRepo := repositorymocks.NewMockVendorRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	service := NewAuthService(vendorRepo, redisClient, kafkaProducer, "secret")

	t.Run("successful login", func(t *testing.T) {
		hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
		vendor := &models.Vendor{ID: 5, Phone: "+60123456789", PasswordHash: string(hash)}

		vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+60123456789").Return(vendor, nil)
		redisClient.EXPECT().Set(gomock.Any(), "vendor:5:token", gomock.Any(), time.Hour).Return(nil)

		token, err := service.Login(ctx, "+60123456789", "s3cret")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
		vendor := &models.Vendor{ID: 5, Phone: "+60123456789", PasswordHash: string(hash)}

		vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+60123456789").Return(vendor, nil)

		token, err := service.Login(ctx, "+60123456789", "wrong")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("unknown vendor", func(t *testing.T) {
		vendorRepo.EXPECT().GetByPhone(gomock.Any(), "+60100000000").Return(nil, pkgerrors.ErrVendorNotFound)

		token, err := service.Login(ctx, "+60100000000", "s3cret")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
		assert.Empty(t, token)
	})
}
