// Package store declares the transaction store ports shared by every backend.
package store

import (
	"context"
	"errors"
	"time"

	"spendlog/internal/core"
)

var (
	ErrNotFound = errors.New("transaction not found")
	ErrConflict = errors.New("transaction already exists")
)

// Ports for the transaction store. Every call is scoped to one user; a
// transaction owned by another user is reported as ErrNotFound.
type (
	Lister interface {
		// ListTransactions returns all of the user's transactions in no particular order.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	Getter interface {
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	Writer interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		// UpdateTransaction applies p atomically and returns the stored result.
		UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch, now time.Time) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	UserProvisioner interface {
		// EnsureUser creates the user on first sight and is a no-op afterwards.
		EnsureUser(ctx context.Context, u core.User) error
	}

	// SyncQueue is implemented by backends that track mirror state per row.
	SyncQueue interface {
		PendingSync(ctx context.Context, limit int) ([]PendingSync, error)
		MarkSynced(ctx context.Context, id string, version int64) error
		MarkSyncError(ctx context.Context, id string) error
	}

	// PendingSync is the minimal data needed to requeue a mirror update.
	PendingSync struct {
		ID        string
		UserID    string
		Version   int64
		UpdatedAt time.Time
	}

	// Store is the full surface a backend provides.
	Store interface {
		Lister
		Getter
		Writer
		UserProvisioner
		Ping(ctx context.Context) error
		Close() error
	}
)
