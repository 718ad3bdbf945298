// Package transferrepo manages repository layer of transfers.
//
// It runs the transfer unit of work inside one Postgres transaction over the account
// and transaction repositories.
package transferrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/mini-bank/internal/accountrepo"
	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/internal/transactionrepo"
	"github.com/go-petr/mini-bank/internal/transferservice"
	"github.com/go-petr/mini-bank/pkg/errorspkg"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	conn     *sql.DB
	accounts *accountrepo.RepoPGS
	ledger   *transactionrepo.RepoPGS
}

// NewRepoPGS returns transfer RepoPGS wiht connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn:     db,
		accounts: accountrepo.NewRepoPGS(db),
		ledger:   transactionrepo.NewRepoPGS(db),
	}
}

type txRepo struct {
	*accountrepo.RepoPGS
	ledger *transactionrepo.RepoPGS
}

func (r txRepo) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	return r.ledger.Create(ctx, arg)
}

// ExecTx runs fn within a single database transaction.
//
// The transaction is committed when fn returns nil and rolled back otherwise.
func (r *RepoPGS) ExecTx(ctx context.Context, fn func(transferservice.TxRepo) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if err := fn(txRepo{
		RepoPGS: accountrepo.NewRepoPGS(tx),
		ledger:  transactionrepo.NewRepoPGS(tx),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

// GetAccount returns the account with the given id.
func (r *RepoPGS) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.accounts.Get(ctx, id)
}

// ListTransactions returns the ledger entries of the account, newest first.
func (r *RepoPGS) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	return r.ledger.ListByAccount(ctx, accountID)
}
