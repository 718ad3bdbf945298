// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/pkg/accountnumber"
	"github.com/go-petr/mini-bank/pkg/errorspkg"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Account, error)
	GetByNumber(ctx context.Context, number string) (domain.Account, error)
	Search(ctx context.Context, ownerID uuid.UUID, term string) ([]domain.Account, error)
	Update(ctx context.Context, arg domain.UpdateAccountParams) (domain.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service facilitates account service layer logic.
type Service struct {
	repo        Repo
	maxAttempts int
	newNumber   func() (string, error)
}

// New returns account service struct to manage account bussines logic.
//
// maxAttempts bounds how many freshly generated account numbers are tried before
// Create gives up with domain.ErrAccountNumberExhausted.
func New(ar Repo, maxAttempts int) *Service {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Service{
		repo:        ar,
		maxAttempts: maxAttempts,
		newNumber:   accountnumber.Generate,
	}
}

// WithNumberGenerator replaces the account number generator.
func (s *Service) WithNumberGenerator(gen func() (string, error)) *Service {
	s.newNumber = gen
	return s
}

func parseBalance(balance string) (decimal.Decimal, error) {
	if balance == "" {
		return decimal.Zero, nil
	}

	d, ok := domain.ParseMoney(balance)
	if !ok || d.IsNegative() {
		return decimal.Decimal{}, domain.ErrInvalidBalance
	}

	return d, nil
}

// Create creates and returns an account owned by the caller.
//
// An empty initialBalance opens the account with zero balance.
func (s *Service) Create(ctx context.Context, caller domain.Identity, name string, accountType domain.AccountType, initialBalance string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !accountType.Valid() {
		return domain.Account{}, domain.ErrInvalidAccountType
	}

	balance, err := parseBalance(initialBalance)
	if err != nil {
		return domain.Account{}, err
	}

	arg := domain.CreateAccountParams{
		Name:    strings.TrimSpace(name),
		Balance: balance,
		Type:    accountType,
		OwnerID: caller.UserID,
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		arg.Number, err = s.newNumber()
		if err != nil {
			l.Error().Err(err).Send()
			return domain.Account{}, errorspkg.ErrInternal
		}

		account, err := s.repo.Create(ctx, arg)
		if errors.Is(err, domain.ErrAccountNumberTaken) {
			l.Warn().Int("attempt", attempt).Str("number", arg.Number).Msg("account number collision")
			continue
		}

		if err != nil {
			return domain.Account{}, err
		}

		return account, nil
	}

	l.Error().Int("attempts", s.maxAttempts).Err(domain.ErrAccountNumberExhausted).Send()

	return domain.Account{}, domain.ErrAccountNumberExhausted
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns account for the given account number.
func (s *Service) GetByNumber(ctx context.Context, number string) (domain.Account, error) {
	if !accountnumber.Valid(number) {
		return domain.Account{}, domain.ErrInvalidAccountNumber
	}

	return s.repo.GetByNumber(ctx, number)
}

// Search returns the caller's accounts whose number or name contains term.
//
// An empty term returns all of the caller's accounts.
func (s *Service) Search(ctx context.Context, caller domain.Identity, term string) ([]domain.Account, error) {
	return s.repo.Search(ctx, caller.UserID, strings.TrimSpace(term))
}

// Update changes the name and type of the caller's account.
func (s *Service) Update(ctx context.Context, caller domain.Identity, id uuid.UUID, name string, accountType domain.AccountType) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !accountType.Valid() {
		return domain.Account{}, domain.ErrInvalidAccountType
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if err := account.CheckOwner(caller); err != nil {
		l.Warn().Err(err).Str("account", account.Number).Str("caller", caller.Username).Send()
		return domain.Account{}, err
	}

	return s.repo.Update(ctx, domain.UpdateAccountParams{
		ID:   id,
		Name: strings.TrimSpace(name),
		Type: accountType,
	})
}

// Delete removes the caller's account.
//
// Accounts that appear in the ledger cannot be removed.
func (s *Service) Delete(ctx context.Context, caller domain.Identity, id uuid.UUID) error {
	l := zerolog.Ctx(ctx)

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := account.CheckOwner(caller); err != nil {
		l.Warn().Err(err).Str("account", account.Number).Str("caller", caller.Username).Send()
		return err
	}

	return s.repo.Delete(ctx, id)
}
