package errors

import (
	"errors"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrGatewayUnavailable       = errors.New("payment gateway unavailable")
	ErrGatewayTimeout           = errors.New("payment gateway timeout")
	ErrGatewayRejected          = errors.New("payment rejected by gateway")
	ErrActiveSubscriptionExists = errors.New("vendor already has an active subscription")
	ErrInvalidTransition        = errors.New("invalid subscription status transition")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrListingNotFound          = errors.New("listing not found")
	ErrVendorNotFound           = errors.New("vendor not found")
	ErrRequestAlreadyProcessed  = errors.New("request already processed")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrVendorExists             = errors.New("vendor already exists")
	ErrNilTransaction           = errors.New("transaction is nil")
	ErrNilSubscription          = errors.New("subscription is nil")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrInvalidSubscriptionState = errors.New("invalid subscription status")
	ErrInternal                 = errors.New("internal error")
)
