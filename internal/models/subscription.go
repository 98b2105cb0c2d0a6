package models

import "time"

// Subscription is a vendor's paid selling-privilege window.
type Subscription struct {
	ID        int64              `json:"id"`
	VendorID  int64              `json:"vendor_id"`
	PlanType  string             `json:"plan_type"`
	Amount    int64              `json:"amount"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Status    SubscriptionStatus `json:"status"`
}

type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusExpired   SubscriptionStatus = "expired"
	SubStatusCancelled SubscriptionStatus = "cancelled"
)

func ValidSubscriptionStatus(s SubscriptionStatus) bool {
	switch s {
	case SubStatusActive, SubStatusExpired, SubStatusCancelled:
		return true
	}
	return false
}
