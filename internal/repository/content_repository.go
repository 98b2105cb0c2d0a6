package repository

import (
	"context"

	"github.com/moynul/taptosell-server/internal/models"
)

// ContentRepository is plain keyed-record storage for marketplace
// listings. No lifecycle logic and no coupling with the payment core.
type ContentRepository interface {
	CreateListing(ctx context.Context, l *models.Listing) (int64, error)
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	DeleteListing(ctx context.Context, id int64) error
	ListListings(ctx context.Context, vendorID int64) ([]models.Listing, error)
}
