package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/sheets"
	"ahorrosmart/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending expenses (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of expenses exported per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an expense stays in error (default: 3)
	MaxRetries int

	// RetryInterval is how often failed expenses are moved back to pending (default: 5m)
	RetryInterval time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:  10 * time.Second,
		BatchSize:     10,
		MaxRetries:    3,
		RetryInterval: 5 * time.Minute,
	}
}

// SyncStore is the slice of the SQLite repository the processor needs.
type SyncStore interface {
	GetPendingSyncExpenses(ctx context.Context, limit int) ([]storage.PendingSyncExpense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	SyncStatus(ctx context.Context, id string) (string, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
	RetrySyncErrors(ctx context.Context, maxAttempts int) (int64, error)
	SyncStats(ctx context.Context) (map[string]int64, error)
}

// SyncProcessor exports persisted expenses to a sheet, either by polling
// for pending records or one at a time on request.
type SyncProcessor struct {
	storage  SyncStore
	exporter sheets.ExpenseExporter
	config   SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(storage SyncStore, exporter sheets.ExpenseExporter, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		storage:  storage,
		exporter: exporter,
		config:   config,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	if p.storage == nil || p.exporter == nil {
		p.mu.Unlock()
		return fmt.Errorf("sync processor needs storage and an exporter")
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

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	retryTicker := time.NewTicker(p.config.RetryInterval)
	defer retryTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-retryTicker.C:
			p.RetryFailed(ctx)
		}
	}
}

// ProcessBatch exports up to BatchSize pending expenses and returns how
// many were exported.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.storage.GetPendingSyncExpenses(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending expenses", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	exported := 0
	for _, item := range items {
		select {
		case <-p.stopCh:
			return exported
		case <-ctx.Done():
			return exported
		default:
		}

		if err := p.ExportExpense(ctx, item.ID); err != nil {
			slog.WarnContext(ctx, "Sync processing failed", "expense_id", item.ID, "error", err)
			continue
		}
		exported++
	}
	return exported
}

// ExportExpense appends one stored expense to the sheet and marks it
// synced. Already synced expenses are skipped. Export failures mark the
// expense as errored. A failed MarkSynced is returned, since the expense
// stays pending.
func (p *SyncProcessor) ExportExpense(ctx context.Context, id string) error {
	status, err := p.storage.SyncStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("get sync status %s: %w", id, err)
	}
	if status == storage.SyncStatusSynced {
		slog.DebugContext(ctx, "Expense already synced, skipping", "expense_id", id)
		return nil
	}

	e, err := p.storage.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense %s: %w", id, err)
	}

	ref, err := p.exporter.Append(ctx, e)
	if err != nil {
		if markErr := p.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark expense sync error", "expense_id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := p.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark %s synced (row %v already appended): %w", id, ref, err)
	}

	slog.InfoContext(ctx, "Exported expense to sheet", "expense_id", id, "sheets_ref", ref)
	return nil
}

// RetryFailed moves errored expenses below MaxRetries back to pending.
func (p *SyncProcessor) RetryFailed(ctx context.Context) int64 {
	n, err := p.storage.RetrySyncErrors(ctx, p.config.MaxRetries)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reset errored expenses", "error", err)
		return 0
	}
	if n > 0 {
		slog.InfoContext(ctx, "Reset errored expenses for retry", "count", n)
	}
	return n
}

// Stats returns expense counts by sync status.
func (p *SyncProcessor) Stats(ctx context.Context) (map[string]int64, error) {
	return p.storage.SyncStats(ctx)
}
