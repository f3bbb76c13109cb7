package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendlog/internal/amqp"
	"spendlog/internal/storage"
	"spendlog/internal/storage/postgres"
	"spendlog/internal/store"
	"spendlog/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store and, when configured, the AMQP client.
// An unreachable broker is logged and skipped; the sweep covers the gap.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st    store.Store
		queue store.SyncQueue
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		st, queue = repo, repo
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		repo, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
		}
		st, queue = repo, repo
		f.logger.Info("Initialized postgres backend")
	case MemoryBackend:
		mem, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
		}
		st = mem
		f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			amqpClient = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Store:     st,
		Queue:     queue,
		Publisher: amqpClient,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := st.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}
