//go:build integration

package accountrepo_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/accountrepo"
	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/internal/integrationtest"
	"github.com/go-petr/mini-bank/internal/integrationtest/helpers"
	"github.com/go-petr/mini-bank/pkg/configpkg"
)

var config configpkg.Config

func TestMain(m *testing.M) {
	var err error

	config, err = configpkg.Load(integrationtest.ConfigPath())
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	os.Exit(m.Run())
}

var (
	compareDecimal   = cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })
	compareCreatedAt = cmpopts.EquateApproxTime(time.Second)
)

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		arg     func(tx *sql.Tx) domain.CreateAccountParams
		wantErr error
	}{
		{
			name: "OK",
			arg: func(tx *sql.Tx) domain.CreateAccountParams {
				user := helpers.SeedUser(t, tx)
				return domain.CreateAccountParams{
					Number:  "1234567890",
					Name:    "salary",
					Balance: decimal.RequireFromString("10.5"),
					Type:    domain.AccountTypeSaving,
					OwnerID: user.ID,
				}
			},
		},
		{
			name: "ConstraintViolation:accounts_owner_id_fkey",
			arg: func(tx *sql.Tx) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					Number:  "1234567891",
					Name:    "salary",
					Type:    domain.AccountTypeSaving,
					OwnerID: uuid.New(),
				}
			},
			wantErr: domain.ErrOwnerNotFound,
		},
		{
			name: "ConstraintViolation:accounts_number_key",
			arg: func(tx *sql.Tx) domain.CreateAccountParams {
				user := helpers.SeedUser(t, tx)
				account := helpers.SeedAccountWith1000Balance(t, tx, user.ID)
				return domain.CreateAccountParams{
					Number:  account.Number,
					Name:    "copy",
					Type:    domain.AccountTypeCredit,
					OwnerID: user.ID,
				}
			},
			wantErr: domain.ErrAccountNumberTaken,
		},
		{
			name: "ConstraintViolation:accounts_balance_check",
			arg: func(tx *sql.Tx) domain.CreateAccountParams {
				user := helpers.SeedUser(t, tx)
				return domain.CreateAccountParams{
					Number:  "1234567892",
					Name:    "debt",
					Balance: decimal.NewFromInt(-1),
					Type:    domain.AccountTypeSaving,
					OwnerID: user.ID,
				}
			},
			wantErr: domain.ErrInvalidBalance,
		},
		{
			name: "ConstraintViolation:accounts_type_check",
			arg: func(tx *sql.Tx) domain.CreateAccountParams {
				user := helpers.SeedUser(t, tx)
				return domain.CreateAccountParams{
					Number:  "1234567893",
					Name:    "gold",
					Type:    "GOLD",
					OwnerID: user.ID,
				}
			},
			wantErr: domain.ErrInvalidAccountType,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
			arg := tc.arg(tx)
			accountRepo := accountrepo.NewRepoPGS(tx)

			got, err := accountRepo.Create(context.Background(), arg)
			if err != tc.wantErr {
				t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error %v, want %v", arg, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.Account{
				Number:    arg.Number,
				Name:      arg.Name,
				Balance:   arg.Balance,
				Type:      arg.Type,
				OwnerID:   arg.OwnerID,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}

			ignoreID := cmpopts.IgnoreFields(domain.Account{}, "ID")
			if diff := cmp.Diff(want, got, ignoreID, compareDecimal, compareCreatedAt); diff != "" {
				t.Errorf("accountRepo.Create(context.Background(), %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
			}

			if got.ID == uuid.Nil {
				t.Error("got.ID = uuid.Nil, want non-nil")
			}
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
	user := helpers.SeedUser(t, tx)
	want := helpers.SeedAccountWith1000Balance(t, tx, user.ID)
	accountRepo := accountrepo.NewRepoPGS(tx)

	got, err := accountRepo.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("accountRepo.Get(ctx, %v) returned error: %v", want.ID, err)
	}

	if diff := cmp.Diff(want, got, compareDecimal); diff != "" {
		t.Errorf("accountRepo.Get(ctx, %v) returned unexpected difference (-want +got):\n%s", want.ID, diff)
	}

	got, err = accountRepo.GetByNumber(ctx, want.Number)
	if err != nil {
		t.Fatalf("accountRepo.GetByNumber(ctx, %v) returned error: %v", want.Number, err)
	}

	if diff := cmp.Diff(want, got, compareDecimal); diff != "" {
		t.Errorf("accountRepo.GetByNumber(ctx, %v) returned unexpected difference (-want +got):\n%s", want.Number, diff)
	}

	if _, err := accountRepo.Get(ctx, uuid.New()); err != domain.ErrAccountNotFound {
		t.Errorf("accountRepo.Get(ctx, random id) returned error %v, want %v", err, domain.ErrAccountNotFound)
	}

	if _, err := accountRepo.GetByNumber(ctx, "0000000000"); err != domain.ErrAccountNotFound {
		t.Errorf("accountRepo.GetByNumber(ctx, 0000000000) returned error %v, want %v", err, domain.ErrAccountNotFound)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
	accountRepo := accountrepo.NewRepoPGS(tx)

	owner := helpers.SeedUser(t, tx)
	other := helpers.SeedUser(t, tx)

	create := func(ownerID uuid.UUID, number, name string) domain.Account {
		a, err := accountRepo.Create(ctx, domain.CreateAccountParams{
			Number:  number,
			Name:    name,
			Balance: decimal.Zero,
			Type:    domain.AccountTypeSaving,
			OwnerID: ownerID,
		})
		if err != nil {
			t.Fatalf("accountRepo.Create returned error: %v", err)
		}

		return a
	}

	salary := create(owner.ID, "5550000001", "Salary")
	percent := create(owner.ID, "5550000002", "100% fun")
	create(other.ID, "5550000003", "Salary")

	testCases := []struct {
		term string
		want []domain.Account
	}{
		{term: "salary", want: []domain.Account{salary}},
		{term: "555000000", want: []domain.Account{salary, percent}},
		{term: "%", want: []domain.Account{percent}},
		{term: "_", want: []domain.Account{}},
		{term: "", want: []domain.Account{salary, percent}},
	}

	for _, tc := range testCases {
		got, err := accountRepo.Search(ctx, owner.ID, tc.term)
		if err != nil {
			t.Fatalf("accountRepo.Search(ctx, %v, %q) returned error: %v", owner.ID, tc.term, err)
		}

		if diff := cmp.Diff(tc.want, got, compareDecimal); diff != "" {
			t.Errorf("accountRepo.Search(ctx, %v, %q) returned unexpected difference (-want +got):\n%s", owner.ID, tc.term, diff)
		}
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
	user := helpers.SeedUser(t, tx)
	account := helpers.SeedAccountWith1000Balance(t, tx, user.ID)
	accountRepo := accountrepo.NewRepoPGS(tx)

	arg := domain.UpdateAccountParams{ID: account.ID, Name: "renamed", Type: domain.AccountTypeCredit}

	got, err := accountRepo.Update(ctx, arg)
	if err != nil {
		t.Fatalf("accountRepo.Update(ctx, %+v) returned error: %v", arg, err)
	}

	want := account
	want.Name = arg.Name
	want.Type = arg.Type

	ignoreUpdatedAt := cmpopts.IgnoreFields(domain.Account{}, "UpdatedAt")
	if diff := cmp.Diff(want, got, compareDecimal, ignoreUpdatedAt); diff != "" {
		t.Errorf("accountRepo.Update(ctx, %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
	}

	arg.ID = uuid.New()
	if _, err := accountRepo.Update(ctx, arg); err != domain.ErrAccountNotFound {
		t.Errorf("accountRepo.Update(ctx, %+v) returned error %v, want %v", arg, err, domain.ErrAccountNotFound)
	}
}

func TestUpdateBalance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
	user := helpers.SeedUser(t, tx)
	account := helpers.SeedAccountWith1000Balance(t, tx, user.ID)
	accountRepo := accountrepo.NewRepoPGS(tx)

	balance := decimal.RequireFromString("0.0001")

	got, err := accountRepo.UpdateBalance(ctx, account.ID, balance)
	if err != nil {
		t.Fatalf("accountRepo.UpdateBalance(ctx, %v, %v) returned error: %v", account.ID, balance, err)
	}

	if !got.Balance.Equal(balance) {
		t.Errorf("got.Balance = %v, want %v", got.Balance, balance)
	}

	// The failing statement aborts the transaction, so it goes last.
	if _, err := accountRepo.UpdateBalance(ctx, account.ID, decimal.NewFromInt(-1)); err != domain.ErrInsufficientBalance {
		t.Errorf("accountRepo.UpdateBalance(ctx, %v, -1) returned error %v, want %v", account.ID, err, domain.ErrInsufficientBalance)
	}
}

func TestDelete(t *testing.T) {
	testCases := []struct {
		name    string
		id      func(tx *sql.Tx) uuid.UUID
		wantErr error
	}{
		{
			name: "OK",
			id: func(tx *sql.Tx) uuid.UUID {
				user := helpers.SeedUser(t, tx)
				return helpers.SeedAccountWith1000Balance(t, tx, user.ID).ID
			},
		},
		{
			name: "NotFound",
			id: func(tx *sql.Tx) uuid.UUID {
				return uuid.New()
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ConstraintViolation:transactions_from_account_id_fkey",
			id: func(tx *sql.Tx) uuid.UUID {
				user := helpers.SeedUser(t, tx)
				from := helpers.SeedAccountWith1000Balance(t, tx, user.ID)
				to := helpers.SeedAccountWith1000Balance(t, tx, user.ID)
				helpers.SeedTransaction(t, tx, from, to, "-1")
				return from.ID
			},
			wantErr: domain.ErrAccountHasTransactions,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
			id := tc.id(tx)
			accountRepo := accountrepo.NewRepoPGS(tx)

			if err := accountRepo.Delete(ctx, id); err != tc.wantErr {
				t.Fatalf("accountRepo.Delete(ctx, %v) returned error %v, want %v", id, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			if _, err := accountRepo.Get(ctx, id); err != domain.ErrAccountNotFound {
				t.Errorf("accountRepo.Get(ctx, %v) after delete returned error %v, want %v", id, err, domain.ErrAccountNotFound)
			}
		})
	}
}
