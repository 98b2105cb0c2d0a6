package models

import "time"

// Transaction is one attempted P2P transfer. Amounts are in minor units.
type Transaction struct {
	ID          int64             `json:"id"`
	Reference   string            `json:"reference"`
	FromPhone   string            `json:"from_phone"`
	ToPhone     string            `json:"to_phone"`
	Amount      int64             `json:"amount"`
	Fee         int64             `json:"fee"`
	Net         int64             `json:"net"`
	Service     string            `json:"service"`
	Status      TransactionStatus `json:"status"`
	GatewayTxID string            `json:"gateway_tx_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

type TransactionStatus string

const (
	StatusInitiated           TransactionStatus = "initiated"
	StatusCompleted           TransactionStatus = "completed"
	StatusFailed              TransactionStatus = "failed"
	StatusPendingVerification TransactionStatus = "pending_verification"
)

// ValidTransactionStatus reports whether s is a known status value.
func ValidTransactionStatus(s TransactionStatus) bool {
	switch s {
	case StatusInitiated, StatusCompleted, StatusFailed, StatusPendingVerification:
		return true
	}
	return false
}
