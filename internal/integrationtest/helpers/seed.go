// Package helpers seeds the database with random rows for integration tests.
package helpers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/accountrepo"
	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/internal/transactionrepo"
	"github.com/go-petr/mini-bank/internal/userrepo"
	"github.com/go-petr/mini-bank/pkg/accountnumber"
	"github.com/go-petr/mini-bank/pkg/dbpkg"
	"github.com/go-petr/mini-bank/pkg/passpkg"
	"github.com/go-petr/mini-bank/pkg/randompkg"
)

// SeedUser creates random User inside a test transaction.
func SeedUser(t *testing.T, tx dbpkg.SQLInterface) domain.User {
	t.Helper()

	u, _ := SeedUserWithPassword(t, tx)

	return u
}

// SeedUserWithPassword creates random User and returns it with its plain password.
func SeedUserWithPassword(t *testing.T, tx dbpkg.SQLInterface) (domain.User, string) {
	t.Helper()

	password := randompkg.String(12)

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		t.Fatalf("passpkg.Hash(%v) returned error: %v", password, err)
	}

	arg := domain.CreateUserParams{
		Username:       randompkg.Owner(),
		HashedPassword: hashedPassword,
		Email:          randompkg.Email(),
	}

	user, err := userrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("userRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return user, password
}

// SeedAccount creates a SAVING account with the given balance inside a test transaction.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface, ownerID uuid.UUID, balance string) domain.Account {
	t.Helper()

	number, err := accountnumber.Generate()
	if err != nil {
		t.Fatalf("accountnumber.Generate() returned error: %v", err)
	}

	arg := domain.CreateAccountParams{
		Number:  number,
		Name:    randompkg.String(8),
		Balance: decimal.RequireFromString(balance),
		Type:    domain.AccountTypeSaving,
		OwnerID: ownerID,
	}

	account, err := accountrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedAccountWith1000Balance creates an account with 1000 on balance inside a test transaction.
func SeedAccountWith1000Balance(t *testing.T, tx dbpkg.SQLInterface, ownerID uuid.UUID) domain.Account {
	t.Helper()

	return SeedAccount(t, tx, ownerID, "1000")
}

// SeedTransaction writes one ledger entry between the accounts inside a test transaction.
func SeedTransaction(t *testing.T, tx dbpkg.SQLInterface, from, to domain.Account, amount string) domain.Transaction {
	t.Helper()

	arg := domain.CreateTransactionParams{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        decimal.RequireFromString(amount),
		Status:        domain.TransactionSuccess,
	}

	entry, err := transactionrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("transactionRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return entry
}
