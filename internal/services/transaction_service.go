package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"spendlog/internal/amqp"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/store"
)

// EventPublisher announces transaction changes to the mirror worker.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction writes across the store, the
// per-user list cache and the event bus.
type TransactionService struct {
	store     store.Store
	publisher EventPublisher
	cache     *cache.LRUCache[[]core.Transaction]
	now       func() time.Time

	group singleflight.Group
	genMu sync.Mutex
	gen   map[string]uint64
}

// NewTransactionService wires the service. publisher and listCache may be nil.
func NewTransactionService(st store.Store, publisher EventPublisher, listCache *cache.LRUCache[[]core.Transaction]) *TransactionService {
	return &TransactionService{
		store:     st,
		publisher: publisher,
		cache:     listCache,
		now:       time.Now,
		gen:       make(map[string]uint64),
	}
}

// List returns every transaction of the user, unordered. Concurrent misses
// for the same user share one store read.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	if userID == "" {
		return nil, core.ErrEmptyUser
	}
	if s.cache != nil {
		if txs, ok := s.cache.Get(userID); ok {
			return slices.Clone(txs), nil
		}
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		gen := s.generation(userID)
		txs, err := s.store.ListTransactions(ctx, userID)
		if err != nil {
			return nil, err
		}
		// A write that landed during the read bumps the generation; its
		// result must not be cached over the fresher state.
		if s.cache != nil && gen == s.generation(userID) {
			s.cache.Set(userID, txs)
		}
		return txs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return slices.Clone(v.([]core.Transaction)), nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Create validates the input, provisions the user on first write and stores
// the transaction under a fresh UUID.
func (s *TransactionService) Create(ctx context.Context, u core.User, in core.TransactionInput) (core.Transaction, error) {
	now := s.now()
	t, err := core.NewTransaction(uuid.NewString(), u.ID, in, now)
	if err != nil {
		return core.Transaction{}, err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if err := s.store.EnsureUser(ctx, u); err != nil {
		return core.Transaction{}, fmt.Errorf("ensure user: %w", err)
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(u.ID)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventUpserted, t.UserID, t.ID, t.Version))
	return t, nil
}

// Update applies a partial patch. An empty patch returns the current row
// without touching UpdatedAt or the version.
func (s *TransactionService) Update(ctx context.Context, userID, id string, p core.TransactionPatch) (core.Transaction, error) {
	if p.IsEmpty() {
		return s.Get(ctx, userID, id)
	}
	t, err := s.store.UpdateTransaction(ctx, userID, id, p, s.now())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidate(userID)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventUpserted, t.UserID, t.ID, t.Version))
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(userID)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, userID, id, 0))
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event",
			"type", ev.Type, "transaction_id", ev.ID)
		return
	}
	// The write already succeeded; the sweep picks up anything lost here.
	if err := s.publisher.PublishTransactionEvent(ctx, ev); err != nil {
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish transaction event",
			"type", ev.Type, "transaction_id", ev.ID, "user_id", ev.UserID, "error", err)
	}
}

func (s *TransactionService) invalidate(userID string) {
	s.genMu.Lock()
	s.gen[userID]++
	s.genMu.Unlock()
	if s.cache != nil {
		s.cache.Delete(userID)
	}
	s.group.Forget(userID)
}

func (s *TransactionService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen[userID]
}

// Close releases the store.
func (s *TransactionService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close transaction service: %w", err)
	}
	return nil
}
