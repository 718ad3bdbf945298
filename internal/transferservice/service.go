// Package transferservice manages business logic layer of transfers.
//
// A transfer moves money between two accounts identified by their account numbers. Both
// balance updates and both ledger entries are written inside one unit of work, so a
// transfer either happens completely or leaves no trace.
package transferservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/pkg/accountnumber"
	"github.com/go-petr/mini-bank/pkg/configpkg"
)

// TxRepo provides the data access needed inside a single transfer unit of work.
type TxRepo interface {
	GetByNumberForUpdate(ctx context.Context, number string) (domain.Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (domain.Account, error)
	CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
}

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	// ExecTx runs fn inside one unit of work. It commits when fn returns nil and
	// rolls back otherwise.
	ExecTx(ctx context.Context, fn func(TxRepo) error) error
	GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo                   Repo
	requireSourceOwnership bool
	now                    func() time.Time
}

// New return transfer service struct to manage transfer bussines logic.
//
// authMode is one of configpkg.TransferAuthNone or configpkg.TransferAuthSourceOwner.
func New(tr Repo, authMode string) *Service {
	return &Service{
		repo:                   tr,
		requireSourceOwnership: authMode != configpkg.TransferAuthNone,
		now:                    time.Now,
	}
}

// WithClock replaces the clock used to timestamp ledger entries.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func validRequest(req domain.TransferRequest) (decimal.Decimal, error) {
	if !accountnumber.Valid(req.FromAccountNumber) || !accountnumber.Valid(req.ToAccountNumber) {
		return decimal.Decimal{}, domain.ErrInvalidAccountNumber
	}

	amount, ok := domain.ParseMoney(req.Amount)
	if !ok {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	if !amount.IsPositive() {
		return decimal.Decimal{}, domain.ErrNonPositiveAmount
	}

	if req.FromAccountNumber == req.ToAccountNumber {
		return decimal.Decimal{}, domain.ErrSameAccount
	}

	return amount, nil
}

// lockPair locks both accounts in ascending account number order and returns them
// as (from, to).
func lockPair(ctx context.Context, tx TxRepo, fromNumber, toNumber string) (domain.Account, domain.Account, error) {
	if fromNumber < toNumber {
		from, err := tx.GetByNumberForUpdate(ctx, fromNumber)
		if err != nil {
			return domain.Account{}, domain.Account{}, err
		}

		to, err := tx.GetByNumberForUpdate(ctx, toNumber)
		if err != nil {
			return domain.Account{}, domain.Account{}, err
		}

		return from, to, nil
	}

	to, err := tx.GetByNumberForUpdate(ctx, toNumber)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	from, err := tx.GetByNumberForUpdate(ctx, fromNumber)
	if err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	return from, to, nil
}

// Transfer moves req.Amount from the source account to the destination account on
// behalf of caller and returns both updated accounts and both ledger entries.
func (s *Service) Transfer(ctx context.Context, caller domain.Identity, req domain.TransferRequest) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	amount, err := validRequest(req)
	if err != nil {
		l.Info().Err(err).Msgf("transfer rejected: %+v", req)
		return domain.TransferResult{}, err
	}

	var result domain.TransferResult

	err = s.repo.ExecTx(ctx, func(tx TxRepo) error {
		from, to, err := lockPair(ctx, tx, req.FromAccountNumber, req.ToAccountNumber)
		if err != nil {
			return err
		}

		if s.requireSourceOwnership {
			if err := from.CheckOwner(caller); err != nil {
				return err
			}
		}

		if from.Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}

		result.FromAccount, err = tx.UpdateBalance(ctx, from.ID, from.Balance.Sub(amount))
		if err != nil {
			return err
		}

		result.ToAccount, err = tx.UpdateBalance(ctx, to.ID, to.Balance.Add(amount))
		if err != nil {
			return err
		}

		createdAt := s.now().UTC()

		result.FromEntry, err = tx.CreateTransaction(ctx, domain.CreateTransactionParams{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Amount:        amount.Neg(),
			Status:        domain.TransactionSuccess,
			CreatedAt:     createdAt,
		})
		if err != nil {
			return err
		}

		result.ToEntry, err = tx.CreateTransaction(ctx, domain.CreateTransactionParams{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Amount:        amount,
			Status:        domain.TransactionSuccess,
			CreatedAt:     createdAt,
		})
		if err != nil {
			return err
		}

		result.FromEntry.FromAccountNumber = from.Number
		result.FromEntry.ToAccountNumber = to.Number
		result.ToEntry.FromAccountNumber = from.Number
		result.ToEntry.ToAccountNumber = to.Number

		return nil
	})

	if err != nil {
		l.Info().Err(err).
			Str("from", req.FromAccountNumber).
			Str("to", req.ToAccountNumber).
			Str("amount", req.Amount).
			Msg("transfer failed")

		return domain.TransferResult{}, err
	}

	l.Info().
		Str("from", req.FromAccountNumber).
		Str("to", req.ToAccountNumber).
		Str("amount", amount.String()).
		Int64("from_entry", result.FromEntry.ID).
		Int64("to_entry", result.ToEntry.ID).
		Msg("transfer completed")

	return result, nil
}

// History returns the ledger entries of the account, newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []domain.Transaction{}
	}

	return entries, nil
}
