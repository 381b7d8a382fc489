// Package ledger owns the in-memory transaction collection and the pure
// computations over it: filtering, sorting, pagination, aggregation and
// report building.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"moneymanager/internal/core"
)

// Saver persists the full collection after every mutation.
type Saver interface {
	SaveTransactions(ctx context.Context, txs []core.Transaction) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, txs []core.Transaction) error

func (f SaverFunc) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	return f(ctx, txs)
}

// Store is the ordered transaction collection, most recent first.
// A failed save leaves the collection as it was before the call.
type Store struct {
	mu     sync.RWMutex
	items  []core.Transaction
	maxID  int64
	saver  Saver
	now    func() time.Time
	strict core.Categories
}

type Option func(*Store)

// WithSaver sets the persistence hook run after each mutation.
func WithSaver(s Saver) Option {
	return func(st *Store) { st.saver = s }
}

// WithClock replaces time.Now for id and createdAt assignment.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithStrictCategories rejects category names missing from cats.
// Without it categories are advisory labels.
func WithStrictCategories(cats core.Categories) Option {
	return func(st *Store) { st.strict = slices.Clone(cats) }
}

func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCategories replaces the table used in strict mode. It is a no-op for
// lenient stores.
func (s *Store) SetCategories(cats core.Categories) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strict != nil {
		s.strict = slices.Clone(cats)
	}
}

// Load replaces the collection with records read from storage without
// triggering a save.
func (s *Store) Load(txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(txs)
	s.maxID = highestID(s.items)
}

// All returns a snapshot of the collection in native order.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Find returns the transaction with id or ErrNotFound.
func (s *Store) Find(id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Transaction{}, fmt.Errorf("find %d: %w", id, core.ErrNotFound)
}

// Add validates e, assigns an id and creation time, and inserts it first.
func (s *Store) Add(ctx context.Context, e core.Entry) (core.Transaction, error) {
	if err := e.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCategory(e.Category); err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	id := now.UnixMilli()
	if id <= s.maxID {
		id = s.maxID + 1
	}
	tx := core.Transaction{
		ID:          id,
		Type:        e.Type,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date,
		Description: e.Description,
		CreatedAt:   now.UTC(),
	}

	next := make([]core.Transaction, 0, len(s.items)+1)
	next = append(next, tx)
	next = append(next, s.items...)
	if err := s.commit(ctx, next); err != nil {
		return core.Transaction{}, err
	}
	s.maxID = id
	return tx, nil
}

// Update replaces the mutable fields of the transaction with id.
// ID, Type and CreatedAt are kept.
func (s *Store) Update(ctx context.Context, id int64, p core.Patch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("update %d: %w", id, core.ErrNotFound)
	}
	if err := s.checkCategory(p.Category); err != nil {
		return core.Transaction{}, err
	}

	tx := s.items[i]
	tx.Amount = p.Amount
	tx.Category = p.Category
	tx.Date = p.Date
	tx.Description = p.Description

	next := slices.Clone(s.items)
	next[i] = tx
	if err := s.commit(ctx, next); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Remove deletes the transaction with id. A missing id is not an error and
// reports false.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	next := slices.Delete(slices.Clone(s.items), i, i+1)
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceAll swaps in an imported collection. Every record must be
// transaction-shaped and ids must be unique.
func (s *Store) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	seen := make(map[int64]struct{}, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if _, dup := seen[tx.ID]; dup {
			return fmt.Errorf("transaction %d: %w", i, &core.ValidationError{Field: "id", Msg: fmt.Sprintf("duplicate id %d", tx.ID)})
		}
		seen[tx.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(txs)
	if next == nil {
		next = []core.Transaction{}
	}
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.maxID = highestID(next)
	return nil
}

// Clear removes every transaction.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []core.Transaction{})
}

// Flush saves the current collection without changing it.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, slices.Clone(s.items))
}

// commit persists next and only then makes it the current collection.
func (s *Store) commit(ctx context.Context, next []core.Transaction) error {
	if s.saver != nil {
		if err := s.saver.SaveTransactions(ctx, slices.Clone(next)); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
	}
	s.items = next
	return nil
}

func (s *Store) checkCategory(name string) error {
	if s.strict == nil {
		return nil
	}
	if _, ok := s.strict.Find(name); !ok {
		return fmt.Errorf("%q: %w", name, core.ErrUnknownCategory)
	}
	return nil
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(tx core.Transaction) bool { return tx.ID == id })
}

func highestID(txs []core.Transaction) int64 {
	var highest int64
	for _, tx := range txs {
		highest = max(highest, tx.ID)
	}
	return highest
}
