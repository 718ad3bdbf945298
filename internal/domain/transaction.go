package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the outcome recorded on a ledger entry.
type TransactionStatus string

// Ledger entry statuses.
const (
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// Transaction is one immutable ledger entry of a transfer.
//
// Every transfer writes two of them with the same account pair: the negated amount
// and the positive amount.
type Transaction struct {
	ID                int64             `json:"id"`
	FromAccountID     uuid.UUID         `json:"from_account_id"`
	ToAccountID       uuid.UUID         `json:"to_account_id"`
	FromAccountNumber string            `json:"from_account_number,omitempty"`
	ToAccountNumber   string            `json:"to_account_number,omitempty"`
	Amount            decimal.Decimal   `json:"amount"` // can be negative or positive
	Status            TransactionStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
}

// CreateTransactionParams holds data needed to append a ledger entry.
type CreateTransactionParams struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Status        TransactionStatus
	CreatedAt     time.Time
}
