// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/pkg/dbpkg"
	"github.com/go-petr/mini-bank/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, number, name, balance, type, owner_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Number,
		&a.Name,
		&a.Balance,
		&a.Type,
		&a.OwnerID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

const createQuery = `
INSERT INTO
    accounts (id, number, name, balance, type, owner_id)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING ` + accountColumns

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.New(),
		arg.Number,
		arg.Name,
		arg.Balance,
		arg.Type,
		arg.OwnerID,
	)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_owner_id_fkey":
				return domain.Account{}, domain.ErrOwnerNotFound
			case "accounts_number_key":
				return domain.Account{}, domain.ErrAccountNumberTaken
			case "accounts_balance_check":
				return domain.Account{}, domain.ErrInvalidBalance
			case "accounts_type_check":
				return domain.Account{}, domain.ErrInvalidAccountType
			}
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.getOne(ctx, getQuery, id)
}

const getByNumberQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE number = $1
`

// GetByNumber returns the account with the given account number.
func (r *RepoPGS) GetByNumber(ctx context.Context, number string) (domain.Account, error) {
	return r.getOne(ctx, getByNumberQuery, number)
}

const getByNumberForUpdateQuery = getByNumberQuery + `FOR NO KEY UPDATE`

// GetByNumberForUpdate returns the account with the given number and locks its row
// until the surrounding transaction ends.
func (r *RepoPGS) GetByNumberForUpdate(ctx context.Context, number string) (domain.Account, error) {
	return r.getOne(ctx, getByNumberForUpdateQuery, number)
}

func (r *RepoPGS) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			l.Info().Err(err).Msgf("account %v", arg)
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const searchQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE
    owner_id = $1 AND
    (number ILIKE $2 ESCAPE '\' OR name ILIKE $2 ESCAPE '\')
ORDER BY created_at, number
`

// Search returns the owner's accounts whose number or name contains term.
func (r *RepoPGS) Search(ctx context.Context, ownerID uuid.UUID, term string) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, searchQuery, ownerID, "%"+escapeLike(term)+"%")
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

const updateQuery = `
UPDATE accounts
SET name = $2, type = $3, updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns

// Update changes the account's name and type and returns the changed account.
func (r *RepoPGS) Update(ctx context.Context, arg domain.UpdateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, updateQuery, arg.ID, arg.Name, arg.Type))
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "accounts_type_check" {
			return domain.Account{}, domain.ErrInvalidAccountType
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const updateBalanceQuery = `
UPDATE accounts
SET balance = $2, updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns

// UpdateBalance persists the new balance of the account and returns the changed account.
func (r *RepoPGS) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, updateBalanceQuery, id, balance))
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "accounts_balance_check" {
			return domain.Account{}, domain.ErrInsufficientBalance
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const deleteQuery = `
DELETE FROM accounts
WHERE id = $1
`

// Delete removes the account with the given id.
func (r *RepoPGS) Delete(ctx context.Context, id uuid.UUID) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_from_account_id_fkey", "transactions_to_account_id_fkey":
				return domain.ErrAccountHasTransactions
			}
		}

		return errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}
