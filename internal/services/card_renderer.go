package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/moynul/taptosell-server/internal/models"
	"github.com/moynul/taptosell-server/internal/repository"
)

// CardService produces the downloadable virtual-card artifact for a
// vendor. Rendering is static; no lifecycle or consistency concerns.
type CardService interface {
	RenderForVendor(ctx context.Context, vendorID int64) ([]byte, error)
}

var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head><title>TapToSell Virtual Card</title></head>
<body>
  <div class="card">
    <h1>TapToSell</h1>
    <p class="name">{{.Name}}</p>
    <p class="phone">{{.Phone}}</p>
    <p class="ref">{{.WalletRef}}</p>
  </div>
</body>
</html>
`))

type cardService struct {
	vendorRepo repository.VendorRepository
}

func NewCardService(vendorRepo repository.VendorRepository) *cardService {
	return &cardService{vendorRepo: vendorRepo}
}

func (s *cardService) RenderForVendor(ctx context.Context, vendorID int64) ([]byte, error) {
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return renderCard(vendor)
}

func renderCard(vendor *models.Vendor) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Name      string
		Phone     string
		WalletRef string
	}{vendor.Name, vendor.Phone, fmt.Sprintf("TTS-WALLET-%06d", vendor.ID)}
	if err := cardTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render card: %w", err)
	}
	return buf.Bytes(), nil
}
