// Package memory is an in-process store with the same owner-scoping rules as
// the Postgres repositories. It backs DB_DRIVER=memory and the unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fintrack/apiserver/internal/store"
	"github.com/fintrack/apiserver/types"
	"github.com/google/uuid"
)

// Store holds users, transactions and exports behind one lock so that user
// deletion can cascade atomically.
type Store struct {
	mu           sync.RWMutex
	users        map[string]types.User
	transactions map[int64]types.Transaction
	exports      map[string]types.Export
	lastID       int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]types.User),
		transactions: make(map[int64]types.Transaction),
		exports:      make(map[string]types.Export),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Transactions returns the transaction repository view of the store.
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

// Exports returns the export repository view of the store.
func (s *Store) Exports() *ExportRepository { return &ExportRepository{s: s} }

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	for txID, tx := range r.s.transactions {
		if tx.UserID == id {
			delete(r.s.transactions, txID)
		}
	}
	for exportID, export := range r.s.exports {
		if export.UserID == id {
			delete(r.s.exports, exportID)
		}
	}
	return nil
}

// Ping always succeeds.
func (r *UserRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *UserRepository) find(match func(types.User) bool) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

type TransactionRepository struct {
	s *Store
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter types.TransactionFilter) ([]types.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	transactions := make([]types.Transaction, 0)
	for _, tx := range r.s.transactions {
		if tx.UserID == userID && filter.Matches(tx) {
			transactions = append(transactions, tx)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		if !transactions[i].Date.Equal(transactions[j].Date.Time) {
			return transactions[i].Date.After(transactions[j].Date.Time)
		}
		return transactions[i].ID > transactions[j].ID
	})
	return transactions, nil
}

func (r *TransactionRepository) Get(ctx context.Context, userID string, id int64) (types.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tx, ok := r.s.transactions[id]
	if !ok || tx.UserID != userID {
		return types.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[tx.UserID]; !ok {
		return types.Transaction{}, store.ErrNotFound
	}
	r.s.lastID++
	now := time.Now().UTC()
	tx.ID = r.s.lastID
	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.s.transactions[tx.ID] = tx
	return tx, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.transactions[tx.ID]
	if !ok || current.UserID != tx.UserID {
		return types.Transaction{}, store.ErrNotFound
	}
	tx.CreatedAt = current.CreatedAt
	tx.UpdatedAt = time.Now().UTC()
	r.s.transactions[tx.ID] = tx
	return tx, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, userID string, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok || tx.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.s.transactions, id)
	return nil
}

type ExportRepository struct {
	s *Store
}

func (r *ExportRepository) Create(ctx context.Context, export types.Export) (types.Export, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[export.UserID]; !ok {
		return types.Export{}, store.ErrNotFound
	}
	now := time.Now().UTC()
	export.ID = uuid.NewString()
	export.CreatedAt = now
	export.UpdatedAt = now
	r.s.exports[export.ID] = export
	return export, nil
}

func (r *ExportRepository) Get(ctx context.Context, userID, id string) (types.Export, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	export, ok := r.s.exports[id]
	if !ok || export.UserID != userID {
		return types.Export{}, store.ErrNotFound
	}
	return export, nil
}

func (r *ExportRepository) Update(ctx context.Context, export types.Export) (types.Export, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.exports[export.ID]
	if !ok || current.UserID != export.UserID {
		return types.Export{}, store.ErrNotFound
	}
	export.CreatedAt = current.CreatedAt
	export.UpdatedAt = time.Now().UTC()
	r.s.exports[export.ID] = export
	return export, nil
}
