package repository

import (
	"context"
	"time"

	"github.com/moynul/taptosell-server/internal/models"
)

type SubscriptionRepository interface {
	// Create inserts the subscription only if the vendor has no active
	// row; check and insert happen in a single statement so two
	// concurrent purchases cannot both become active.
	Create(ctx context.Context, sub *models.Subscription) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	FindActive(ctx context.Context, vendorID int64) (*models.Subscription, error)
	// UpdateStatus is a compare-and-set on the current status; reports
	// false when zero rows matched.
	UpdateStatus(ctx context.Context, id int64, from, to models.SubscriptionStatus) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error)
}
