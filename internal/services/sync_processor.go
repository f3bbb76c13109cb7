package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendlog/internal/sheets"
	"spendlog/internal/store"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending rows (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows to mirror per poll cycle (default: 25)
	BatchSize int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    25,
	}
}

// SyncProcessor sweeps rows the store still marks as unmirrored and pushes
// them to the sheet. It backs up the event path when messages are lost.
type SyncProcessor struct {
	queue  store.SyncQueue
	getter store.Getter
	mirror sheets.Mirror
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(queue store.SyncQueue, getter store.Getter, mirror sheets.Mirror, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncProcessor{
		queue:  queue,
		getter: getter,
		mirror: mirror,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	n, err := p.RunOnce(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sync sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Sync sweep mirrored rows", "count", n)
	}
}

// RunOnce mirrors one batch of pending rows and returns how many succeeded.
// Per-row failures are recorded on the row, not returned.
func (p *SyncProcessor) RunOnce(ctx context.Context) (int, error) {
	items, err := p.queue.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending rows: %w", err)
	}

	synced := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := p.syncItem(ctx, item); err != nil {
			slog.WarnContext(ctx, "Sync of transaction failed",
				"transaction_id", item.ID, "user_id", item.UserID, "error", err)
			if err := p.queue.MarkSyncError(ctx, item.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"transaction_id", item.ID, "error", err)
			}
			continue
		}
		synced++
	}
	return synced, nil
}

func (p *SyncProcessor) syncItem(ctx context.Context, item store.PendingSync) error {
	t, err := p.getter.GetTransaction(ctx, item.UserID, item.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted after it was listed.
		return p.mirror.DeleteTransaction(ctx, item.UserID, item.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if err := p.mirror.UpsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}
	// A newer version keeps the row pending for the next sweep.
	if err := p.queue.MarkSynced(ctx, t.ID, t.Version); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}
