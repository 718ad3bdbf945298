package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidTransfer is the parent of all rejected transfer requests.
	ErrInvalidTransfer = errors.New("invalid transfer")
	// ErrInvalidAmount indicates an amount that is not a decimal number or does not fit the money limits.
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrInvalidTransfer)
	// ErrNonPositiveAmount indicates a zero or negative amount.
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	// ErrSameAccount indicates a transfer from an account to itself.
	ErrSameAccount = fmt.Errorf("%w: source and destination accounts are the same", ErrInvalidTransfer)
)

// TransferRequest is the input of a single transfer.
type TransferRequest struct {
	FromAccountNumber string `json:"from_account_number"`
	ToAccountNumber   string `json:"to_account_number"`
	Amount            string `json:"amount"` // must be positive
}

// TransferResult is the result of the transfer transaction.
type TransferResult struct {
	FromAccount Account     `json:"from_account"`
	ToAccount   Account     `json:"to_account"`
	FromEntry   Transaction `json:"from_entry"`
	ToEntry     Transaction `json:"to_entry"`
}
