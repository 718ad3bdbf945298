// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccessDenied indicates that the caller does not own the account.
	ErrAccessDenied = errors.New("access denied")
	// ErrOwnerNotFound indicates that the owner for the account is not found.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrAccountNumberTaken indicates that the generated account number is already assigned.
	ErrAccountNumberTaken = errors.New("account number already taken")
	// ErrAccountNumberExhausted indicates that no free account number was found within the retry limit.
	ErrAccountNumberExhausted = errors.New("could not assign a unique account number")
	// ErrAccountHasTransactions indicates that the account is referenced by the ledger.
	ErrAccountHasTransactions = errors.New("account has transactions")

	// ErrValidation is the parent of all malformed input errors.
	ErrValidation = errors.New("validation error")
	// ErrInvalidAccountNumber indicates a malformed account number.
	ErrInvalidAccountNumber = fmt.Errorf("%w: invalid account number", ErrValidation)
	// ErrInvalidAccountType indicates an unknown account type.
	ErrInvalidAccountType = fmt.Errorf("%w: invalid account type", ErrValidation)
	// ErrInvalidBalance indicates a malformed, negative or out of range initial balance.
	ErrInvalidBalance = fmt.Errorf("%w: invalid balance", ErrValidation)
)

// AccountType enumerates the supported account categories.
type AccountType string

// Supported account types.
const (
	AccountTypeSaving AccountType = "SAVING"
	AccountTypeCredit AccountType = "CREDIT"
)

// AccountTypes holds all the supported account types.
var AccountTypes = []AccountType{
	AccountTypeSaving,
	AccountTypeCredit,
}

// Valid returns true if the account type is supported.
func (t AccountType) Valid() bool {
	for _, at := range AccountTypes {
		if at == t {
			return true
		}
	}

	return false
}

// Account holds the balance of a user's account.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Type      AccountType     `json:"type"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CheckOwner returns ErrAccessDenied unless the caller owns the account.
func (a Account) CheckOwner(caller Identity) error {
	if a.OwnerID != caller.UserID {
		return ErrAccessDenied
	}

	return nil
}

// CreateAccountParams holds data needed for Account creation.
type CreateAccountParams struct {
	Number  string
	Name    string
	Balance decimal.Decimal
	Type    AccountType
	OwnerID uuid.UUID
}

// UpdateAccountParams holds the mutable account fields.
type UpdateAccountParams struct {
	ID   uuid.UUID
	Name string
	Type AccountType
}
