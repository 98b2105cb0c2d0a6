package service

import (
	"context"
	"fmt"
	"log/slog"

	stderrors "errors"

	"github.com/moynul/taptosell-server/internal/models"
	"github.com/moynul/taptosell-server/internal/repository"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
)

// ContentService manages marketplace listings. Writing requires an
// active subscription; reads are open.
type ContentService interface {
	CreateListing(ctx context.Context, vendorID int64, title, description string, price int64) (*models.Listing, error)
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	UpdateListing(ctx context.Context, vendorID, id int64, title, description string, price int64) (*models.Listing, error)
	DeleteListing(ctx context.Context, vendorID, id int64) error
	ListListings(ctx context.Context, vendorID int64) ([]models.Listing, error)
}

type contentService struct {
	contentRepo   repository.ContentRepository
	subscriptions SubscriptionService
}

func NewContentService(contentRepo repository.ContentRepository, subscriptions SubscriptionService) *contentService {
	return &contentService{
		contentRepo:   contentRepo,
		subscriptions: subscriptions,
	}
}

func (s *contentService) CreateListing(ctx context.Context, vendorID int64, title, description string, price int64) (*models.Listing, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", pkgerrors.ErrValidation)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", pkgerrors.ErrValidation)
	}

	// selling requires a live subscription
	if _, err := s.subscriptions.FindActive(ctx, vendorID); err != nil {
		if stderrors.Is(err, pkgerrors.ErrSubscriptionNotFound) {
			slog.Warn("listing rejected, no active subscription", "vendor_id", vendorID)
			return nil, err
		}
		return nil, err
	}

	listing := &models.Listing{
		VendorID:    vendorID,
		Title:       title,
		Description: description,
		Price:       price,
	}
	if _, err := s.contentRepo.CreateListing(ctx, listing); err != nil {
		slog.Error("failed to create listing", "vendor_id", vendorID, "error", err)
		return nil, fmt.Errorf("%w: failed to create listing", pkgerrors.ErrInternal)
	}

	slog.Info("listing created", "listing_id", listing.ID, "vendor_id", vendorID)
	return listing, nil
}

func (s *contentService) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	return s.contentRepo.GetListing(ctx, id)
}

func (s *contentService) UpdateListing(ctx context.Context, vendorID, id int64, title, description string, price int64) (*models.Listing, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", pkgerrors.ErrValidation)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", pkgerrors.ErrValidation)
	}

	existing, err := s.contentRepo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.VendorID != vendorID {
		// ownership mismatch is indistinguishable from absence
		return nil, pkgerrors.ErrListingNotFound
	}

	existing.Title = title
	existing.Description = description
	existing.Price = price
	if err := s.contentRepo.UpdateListing(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *contentService) DeleteListing(ctx context.Context, vendorID, id int64) error {
	existing, err := s.contentRepo.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if existing.VendorID != vendorID {
		return pkgerrors.ErrListingNotFound
	}
	return s.contentRepo.DeleteListing(ctx, id)
}

func (s *contentService) ListListings(ctx context.Context, vendorID int64) ([]models.Listing, error) {
	return s.contentRepo.ListListings(ctx, vendorID)
}
