package backend

import (
	"context"

	"spendlog/internal/amqp"
	"spendlog/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store plus the optional collaborators that
// depend on the chosen backend.
type BackendResult struct {
	Store store.Store
	// Queue is set for backends that track mirror state per row.
	Queue store.SyncQueue
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Memory specific
	SeedFile string

	// AMQP is optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Durable reports whether data outlives the process, which a separate
// worker process needs to read what the server wrote.
func (bt BackendType) Durable() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
