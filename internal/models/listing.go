package models

import "time"

// Listing is a marketplace service listing. Plain keyed record, no
// lifecycle logic.
type Listing struct {
	ID          int64     `json:"id"`
	VendorID    int64     `json:"vendor_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}
