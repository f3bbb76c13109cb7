package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/amqp"
	"spendlog/internal/services"
	"spendlog/internal/sheets"
	"spendlog/internal/store"
)

// Consumer delivers transaction events until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

// SyncWorker mirrors transactions from the store to the sheet on every event.
type SyncWorker struct {
	getter store.Getter
	queue  store.SyncQueue
	mirror sheets.Mirror
}

// NewSyncWorker builds a worker. queue may be nil for backends that do not
// track sync state.
func NewSyncWorker(getter store.Getter, queue store.SyncQueue, mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{
		getter: getter,
		queue:  queue,
		mirror: mirror,
	}
}

// HandleEvent dispatches one event. A returned error makes the consumer
// requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"type", ev.Type,
		"transaction_id", ev.ID,
		"user_id", ev.UserID,
		"version", ev.Version)

	switch ev.Type {
	case amqp.EventUpserted:
		return w.handleUpsert(ctx, ev)
	case amqp.EventDeleted:
		return w.handleDelete(ctx, ev)
	default:
		// Unknown types would loop forever if requeued.
		slog.WarnContext(ctx, "Dropping event of unknown type", "type", ev.Type)
		return nil
	}
}

func (w *SyncWorker) handleUpsert(ctx context.Context, ev *amqp.TransactionEvent) error {
	t, err := w.getter.GetTransaction(ctx, ev.UserID, ev.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted before we got here; the delete event may have been lost.
		slog.InfoContext(ctx, "Transaction gone before sync, removing row", "transaction_id", ev.ID)
		return w.handleDelete(ctx, ev)
	}
	if err != nil {
		return fmt.Errorf("get transaction from store: %w", err)
	}

	if err := w.mirror.UpsertTransaction(ctx, t); err != nil {
		if w.queue != nil {
			if markErr := w.queue.MarkSyncError(ctx, t.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", t.ID, "error", markErr)
			}
		}
		return fmt.Errorf("upsert row: %w", err)
	}

	if w.queue != nil {
		if err := w.queue.MarkSynced(ctx, t.ID, t.Version); err != nil {
			// The row is in the sheet; the sweep will rewrite it harmlessly.
			slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", t.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"version", t.Version,
		"amount_paise", t.Amount.Paise)
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, ev *amqp.TransactionEvent) error {
	if err := w.mirror.DeleteTransaction(ctx, ev.UserID, ev.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete row",
			"transaction_id", ev.ID,
			"error", err,
			"timestamp", ev.Timestamp)
		return fmt.Errorf("delete row: %w", err)
	}
	slog.InfoContext(ctx, "Successfully deleted row", "transaction_id", ev.ID)
	return nil
}

// Run consumes events and, when sweeper is set, runs the periodic sweep
// beside it. It returns when ctx is cancelled or the consumer fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, sweeper *services.SyncProcessor) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := consumer.Consume(gctx, w.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if sweeper != nil {
		g.Go(func() error {
			if err := sweeper.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return sweeper.Stop(stopCtx)
		})
	}

	return g.Wait()
}
