package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/store"
)

// Store keeps transactions in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.Mutex
	users map[string]core.User
	items map[string]core.Transaction
}

func New() *Store {
	return &Store{
		users: make(map[string]core.User),
		items: make(map[string]core.Transaction),
	}
}

// NewFromFile seeds the store from a JSON array of transactions. A missing
// file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Transaction
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for _, t := range seed {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("seed transaction %q: %w", t.ID, err)
		}
		s.items[t.ID] = t
	}
	return s, nil
}

func (s *Store) EnsureUser(_ context.Context, u core.User) error {
	if u.ID == "" {
		return core.ErrEmptyUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now()
		}
		s.users[u.ID] = u
	}
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[t.ID]; ok {
		return store.ErrConflict
	}
	t.Version = max(t.Version, 1)
	s.items[t.ID] = t
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, p core.TransactionPatch, now time.Time) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, store.ErrNotFound
	}
	updated, err := p.Apply(t, now)
	if err != nil {
		return core.Transaction{}, err
	}
	updated.Version = t.Version + 1
	s.items[id] = updated
	return updated, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
