package gateway

import (
	"context"
	"time"
)

// Result is the rail's response to an initiated payment.
type Result struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// Balance is the rail-reported balance of an account. It is never cached
// locally as authoritative.
type Balance struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// Verification is the rail's answer when reconciling by reference.
type Verification struct {
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
}

// PaymentGateway models the external mobile-money rail. Initiate must be
// safe to call repeatedly with the same idempotency key: the rail (or the
// cache in front of it) returns the original result instead of executing
// twice. Errors are the pkg/errors gateway sentinels, possibly wrapped.
type PaymentGateway interface {
	Initiate(ctx context.Context, from, to string, amount int64, service, idempotencyKey string) (*Result, error)
	CheckBalance(ctx context.Context, account string) (*Balance, error)
	Verify(ctx context.Context, ref string) (*Verification, error)
}
