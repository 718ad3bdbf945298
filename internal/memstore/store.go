// Package memstore provides in-memory implementations of the user, account and transfer
// repositories.
//
// It backs the server when STORAGE=memory and lets the transfer engine run without a
// database in tests. Transfers follow the same rules as the Postgres store: accounts are
// locked one by one for the duration of a unit of work, changes are staged and become
// visible to other readers only on commit, and ledger ids come from one increasing counter.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/internal/transferservice"
)

// Store holds all the data in memory.
type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]domain.User
	usernames map[string]uuid.UUID
	emails    map[string]uuid.UUID
	accounts  map[uuid.UUID]domain.Account
	numbers   map[string]uuid.UUID
	ledger    []domain.Transaction
	lastID    int64

	rowsMu sync.Mutex
	rows   map[uuid.UUID]chan struct{}

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]domain.User),
		usernames: make(map[string]uuid.UUID),
		emails:    make(map[string]uuid.UUID),
		accounts:  make(map[uuid.UUID]domain.Account),
		numbers:   make(map[string]uuid.UUID),
		rows:      make(map[uuid.UUID]chan struct{}),
		now:       time.Now,
	}
}

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() *AccountRepo {
	return &AccountRepo{s: s}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepo {
	return &UserRepo{s: s}
}

// Transfers returns the transfer repository view of the store.
func (s *Store) Transfers() *TransferRepo {
	return &TransferRepo{s: s}
}

// lockRow blocks until the row lock of the account is acquired or ctx is done.
func (s *Store) lockRow(ctx context.Context, id uuid.UUID) (func(), error) {
	s.rowsMu.Lock()
	ch, ok := s.rows[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rows[id] = ch
	}
	s.rowsMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++

	return s.lastID
}

// UserRepo is the in-memory user repository.
type UserRepo struct {
	s *Store
}

// Create creates the user and then returns it.
func (r *UserRepo) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	s := r.s

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[arg.Username]; ok {
		return domain.User{}, domain.ErrUsernameAlreadyExists
	}

	if _, ok := s.emails[arg.Email]; ok {
		return domain.User{}, domain.ErrEmailALreadyExists
	}

	now := s.now().UTC()
	u := domain.User{
		ID:             uuid.New(),
		Username:       arg.Username,
		HashedPassword: arg.HashedPassword,
		Email:          arg.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.users[u.ID] = u
	s.usernames[u.Username] = u.ID
	s.emails[u.Email] = u.ID

	return u, nil
}

// Get returns the user with the given username.
func (r *UserRepo) Get(ctx context.Context, username string) (domain.User, error) {
	s := r.s

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return s.users[id], nil
}

// GetByID returns the user with the given id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	s := r.s

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return u, nil
}

// Update changes the user's email and returns the changed user.
func (r *UserRepo) Update(ctx context.Context, arg domain.UpdateUserParams) (domain.User, error) {
	s := r.s

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[arg.ID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	if id, ok := s.emails[arg.Email]; ok && id != u.ID {
		return domain.User{}, domain.ErrEmailALreadyExists
	}

	delete(s.emails, u.Email)
	u.Email = arg.Email
	u.UpdatedAt = s.now().UTC()
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID

	return u, nil
}

// AccountRepo is the in-memory account repository.
type AccountRepo struct {
	s *Store
}

// Create creates the account and then returns it.
func (r *AccountRepo) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	s := r.s

	if arg.Balance.IsNegative() {
		return domain.Account{}, domain.ErrInvalidBalance
	}

	if !arg.Type.Valid() {
		return domain.Account{}, domain.ErrInvalidAccountType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[arg.OwnerID]; !ok {
		return domain.Account{}, domain.ErrOwnerNotFound
	}

	if _, ok := s.numbers[arg.Number]; ok {
		return domain.Account{}, domain.ErrAccountNumberTaken
	}

	now := s.now().UTC()
	a := domain.Account{
		ID:        uuid.New(),
		Number:    arg.Number,
		Name:      arg.Name,
		Balance:   arg.Balance,
		Type:      arg.Type,
		OwnerID:   arg.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.accounts[a.ID] = a
	s.numbers[a.Number] = a.ID

	return a, nil
}

// Get returns the account with the given id.
func (r *AccountRepo) Get(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	s := r.s

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

// GetByNumber returns the account with the given account number.
func (r *AccountRepo) GetByNumber(ctx context.Context, number string) (domain.Account, error) {
	s := r.s

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.numbers[number]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.accounts[id], nil
}

// Search returns the owner's accounts whose number or name contains term.
func (r *AccountRepo) Search(ctx context.Context, ownerID uuid.UUID, term string) ([]domain.Account, error) {
	s := r.s
	term = strings.ToLower(term)

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []domain.Account{}

	for _, a := range s.accounts {
		if a.OwnerID != ownerID {
			continue
		}

		if strings.Contains(a.Number, term) || strings.Contains(strings.ToLower(a.Name), term) {
			items = append(items, a)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}

		return items[i].Number < items[j].Number
	})

	return items, nil
}

// Update changes the account's name and type and returns the changed account.
func (r *AccountRepo) Update(ctx context.Context, arg domain.UpdateAccountParams) (domain.Account, error) {
	s := r.s

	if !arg.Type.Valid() {
		return domain.Account{}, domain.ErrInvalidAccountType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[arg.ID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a.Name = arg.Name
	a.Type = arg.Type
	a.UpdatedAt = s.now().UTC()
	s.accounts[a.ID] = a

	return a, nil
}

// Delete removes the account with the given id.
//
// It waits for the transfers holding the account to finish.
func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := r.s

	unlock, err := s.lockRow(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	for _, t := range s.ledger {
		if t.FromAccountID == id || t.ToAccountID == id {
			return domain.ErrAccountHasTransactions
		}
	}

	delete(s.accounts, id)
	delete(s.numbers, a.Number)

	// Waiters on the old lock find the account gone once they acquire it.
	s.rowsMu.Lock()
	delete(s.rows, id)
	s.rowsMu.Unlock()

	return nil
}

// TransferRepo is the in-memory transfer repository.
type TransferRepo struct {
	s *Store
}

// ExecTx runs fn inside a unit of work.
//
// Changes made through the unit of work are applied to the store when fn returns nil
// and discarded otherwise.
func (r *TransferRepo) ExecTx(ctx context.Context, fn func(transferservice.TxRepo) error) error {
	tx := &memTx{
		s:      r.s,
		unlock: make(map[uuid.UUID]func()),
		staged: make(map[uuid.UUID]domain.Account),
		dirty:  make(map[uuid.UUID]bool),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("unit of work rolled back")
		return err
	}

	tx.commit()

	return nil
}

// GetAccount returns the account with the given id.
func (r *TransferRepo) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.s.Accounts().Get(ctx, id)
}

// ListTransactions returns the ledger entries of the account, newest first.
func (r *TransferRepo) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	s := r.s

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []domain.Transaction{}

	for _, t := range s.ledger {
		if t.FromAccountID != accountID && t.ToAccountID != accountID {
			continue
		}

		t.FromAccountNumber = s.accounts[t.FromAccountID].Number
		t.ToAccountNumber = s.accounts[t.ToAccountID].Number
		items = append(items, t)
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}

		return items[i].ID > items[j].ID
	})

	return items, nil
}

// memTx is a staging arena of one unit of work.
type memTx struct {
	s       *Store
	unlock  map[uuid.UUID]func()
	staged  map[uuid.UUID]domain.Account
	dirty   map[uuid.UUID]bool
	entries []domain.Transaction
}

func (tx *memTx) GetByNumberForUpdate(ctx context.Context, number string) (domain.Account, error) {
	s := tx.s

	s.mu.RLock()
	id, ok := s.numbers[number]
	s.mu.RUnlock()

	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	if a, ok := tx.staged[id]; ok {
		return a, nil
	}

	unlock, err := s.lockRow(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	tx.unlock[id] = unlock

	// The account may have been deleted while waiting for the lock.
	s.mu.RLock()
	a, ok := s.accounts[id]
	s.mu.RUnlock()

	if !ok || a.Number != number {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	tx.staged[id] = a

	return a, nil
}

func (tx *memTx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (domain.Account, error) {
	a, ok := tx.staged[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	if balance.IsNegative() {
		return domain.Account{}, domain.ErrInsufficientBalance
	}

	a.Balance = balance
	a.UpdatedAt = tx.s.now().UTC()
	tx.staged[id] = a
	tx.dirty[id] = true

	return a, nil
}

func (tx *memTx) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	s := tx.s

	if arg.Amount.IsZero() {
		return domain.Transaction{}, domain.ErrNonPositiveAmount
	}

	s.mu.RLock()
	_, fromOK := s.accounts[arg.FromAccountID]
	_, toOK := s.accounts[arg.ToAccountID]
	s.mu.RUnlock()

	if !fromOK || !toOK {
		return domain.Transaction{}, domain.ErrAccountNotFound
	}

	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	t := domain.Transaction{
		ID:            s.nextID(),
		FromAccountID: arg.FromAccountID,
		ToAccountID:   arg.ToAccountID,
		Amount:        arg.Amount,
		Status:        arg.Status,
		CreatedAt:     createdAt,
	}

	tx.entries = append(tx.entries, t)

	return t, nil
}

func (tx *memTx) commit() {
	s := tx.s

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.dirty {
		cur, ok := s.accounts[id]
		if !ok {
			continue
		}

		cur.Balance = tx.staged[id].Balance
		cur.UpdatedAt = tx.staged[id].UpdatedAt
		s.accounts[id] = cur
	}

	s.ledger = append(s.ledger, tx.entries...)
}

func (tx *memTx) release() {
	for id, unlock := range tx.unlock {
		unlock()
		delete(tx.unlock, id)
	}
}
