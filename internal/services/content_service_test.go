package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	kafkamocks "github.com/moynul/taptosell-server/internal/infrastructure/kafka/mocks"
	"github.com/moynul/taptosell-server/internal/models"
	repositorymocks "github.com/moynul/taptosell-server/internal/repository/mocks"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestContentService_CreateListing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	contentRepo := repositorymocks.NewMockContentRepository(ctrl)
	subscriptionRepo := repositorymocks.NewMockSubscriptionRepository(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	subs := NewSubscriptionService(subscriptionRepo, kafkaProducer)
	service := NewContentService(contentRepo, subs)

	t.Run("subscribed vendor can publish", func(t *testing.T) {
		subscriptionRepo.EXPECT().FindActive(gomock.Any(), int64(7)).
			Return(&models.Subscription{ID: 1, VendorID: 7, Status: models.SubStatusActive}, nil)
		contentRepo.EXPECT().CreateListing(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, l *models.Listing) (int64, error) {
				l.ID = 100
				return 100, nil
			})

		listing, err := service.CreateListing(ctx, 7, "Nasi Lemak Set", "with sambal", 1200)
		assert.NoError(t, err)
		assert.Equal(t, int64(100), listing.ID)
		assert.Equal(t, int64(7), listing.VendorID)
	})

	t.Run("no active subscription blocks publishing", func(t *testing.T) {
		subscriptionRepo.EXPECT().FindActive(gomock.Any(), int64(8)).
			Return(nil, pkgerrors.ErrSubscriptionNotFound)

		listing, err := service.CreateListing(ctx, 8, "Nasi Lemak Set", "with sambal", 1200)
		assert.ErrorIs(t, err, pkgerrors.ErrSubscriptionNotFound)
		assert.Nil(t, listing)
	})

	t.Run("invalid price", func(t *testing.T) {
		listing, err := service.CreateListing(ctx, 7, "Nasi Lemak Set", "with sambal", 0)
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Nil(t, listing)
	})
}

func TestContentService_OwnershipChecks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	contentRepo := repositorymocks.NewMockContentRepository(ctrl)
	subscriptionRepo := repositorymocks.NewMockSubscriptionRepository(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	subs := NewSubscriptionService(subscriptionRepo, kafkaProducer)
	service := NewContentService(contentRepo, subs)

	t.Run("owner can update", func(t *testing.T) {
		contentRepo.EXPECT().GetListing(gomock.Any(), int64(100)).
			Return(&models.Listing{ID: 100, VendorID: 7, Title: "Old", Price: 1000}, nil)
		contentRepo.EXPECT().UpdateListing(gomock.Any(), gomock.Any()).Return(nil)

		listing, err := service.UpdateListing(ctx, 7, 100, "New", "updated", 1500)
		assert.NoError(t, err)
		assert.Equal(t, "New", listing.Title)
		assert.Equal(t, int64(1500), listing.Price)
	})

	t.Run("someone else's listing looks absent", func(t *testing.T) {
		contentRepo.EXPECT().GetListing(gomock.Any(), int64(100)).
			Return(&models.Listing{ID: 100, VendorID: 7}, nil)

		listing, err := service.UpdateListing(ctx, 9, 100, "New", "updated", 1500)
		assert.ErrorIs(t, err, pkgerrors.ErrListingNotFound)
		assert.Nil(t, listing)
	})

	t.Run("delete enforces ownership too", func(t *testing.T) {
		contentRepo.EXPECT().GetListing(gomock.Any(), int64(100)).
			Return(&models.Listing{ID: 100, VendorID: 7}, nil)

		err := service.DeleteListing(ctx, 9, 100)
		assert.ErrorIs(t, err, pkgerrors.ErrListingNotFound)
	})
}
