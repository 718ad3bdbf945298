// Package userrepo manages repository layer of users.
package userrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/pkg/dbpkg"
	"github.com/go-petr/mini-bank/pkg/errorspkg"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const userColumns = `id, username, hashed_password, email, created_at, updated_at`

// CreateQuery inserts into users table.
const CreateQuery = `
INSERT INTO users (
    id,
    username,
    hashed_password,
    email
) VALUES (
    $1, $2, $3, $4
) RETURNING ` + userColumns

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.HashedPassword,
		&u.Email,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

// Create creates the user and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, CreateQuery,
		uuid.New(),
		arg.Username,
		arg.HashedPassword,
		arg.Email,
	))

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				switch pqErr.Constraint {
				case "users_username_key":
					return domain.User{}, domain.ErrUsernameAlreadyExists
				case "users_email_key":
					return domain.User{}, domain.ErrEmailALreadyExists
				}
			}
		}

		return domain.User{}, errorspkg.ErrInternal
	}

	return u, nil
}

const updateQuery = `
UPDATE users
SET email = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

// Update changes the user's email and returns the changed user.
func (r *RepoPGS) Update(ctx context.Context, arg domain.UpdateUserParams) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, updateQuery, arg.ID, arg.Email))
	if err != nil {
		if err == sql.ErrNoRows {
			l.Info().Err(err).Msgf("user %v", arg.ID)
			return domain.User{}, domain.ErrUserNotFound
		}

		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "users_email_key" {
			return domain.User{}, domain.ErrEmailALreadyExists
		}

		return domain.User{}, errorspkg.ErrInternal
	}

	return u, nil
}

const getQuery = `
SELECT ` + userColumns + `
FROM users
WHERE username = $1
`

// Get returns the user with the given username.
func (r *RepoPGS) Get(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, getQuery, username)
}

const getByIDQuery = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

// GetByID returns the user with the given id.
func (r *RepoPGS) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return r.getOne(ctx, getByIDQuery, id)
}

func (r *RepoPGS) getOne(ctx context.Context, query string, arg any) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			l.Info().Err(err).Msgf("user %v", arg)
			return domain.User{}, domain.ErrUserNotFound
		}

		l.Error().Err(err).Send()

		return domain.User{}, errorspkg.ErrInternal
	}

	return u, nil
}
