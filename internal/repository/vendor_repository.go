package repository

import (
	"context"

	"github.com/moynul/taptosell-server/internal/models"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *models.Vendor) error
	GetByID(ctx context.Context, id int64) (*models.Vendor, error)
	GetByPhone(ctx context.Context, phone string) (*models.Vendor, error)
}
