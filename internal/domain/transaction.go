package domain

import "time"

type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeRefund  TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is an append-only ledger entry for a monetary event on a
// booking. Once success or failed it is never mutated again.
type Transaction struct {
	ID                    int64
	BookingID             int64
	Amount                int64
	Type                  TransactionType
	Provider              string
	ProviderTransactionID string
	Status                TransactionStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
