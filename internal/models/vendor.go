package models

import "time"

// Vendor is an account holder with selling privileges while an active
// subscription exists. The wallet balance lives on the mobile-money rail,
// not here.
type Vendor struct {
	ID           int64
	Phone        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
