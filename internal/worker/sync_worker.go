package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ahorrosmart/internal/amqp"
	"ahorrosmart/internal/services"
	"ahorrosmart/internal/storage"
)

// Consumer delivers expense-recorded messages to a handler until ctx ends.
type Consumer interface {
	ConsumeExpenseRecorded(ctx context.Context, handler amqp.Handler) error
}

// maxStartupPasses bounds the startup drain. Whatever is left is picked up
// by the sweep.
const maxStartupPasses = 100

// SyncWorker exports persisted expenses to Google Sheets, driven by AMQP
// messages with a periodic sweep of pending records as backup.
type SyncWorker struct {
	processor     *services.SyncProcessor
	consumer      Consumer
	batchSize     int
	sweepInterval time.Duration
}

// NewSyncWorker creates a worker. A nil consumer runs the sweep only.
func NewSyncWorker(processor *services.SyncProcessor, consumer Consumer, batchSize int, sweepInterval time.Duration) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		processor:     processor,
		consumer:      consumer,
		batchSize:     batchSize,
		sweepInterval: sweepInterval,
	}
}

// HandleExpenseRecorded exports the expense named by msg. Expenses missing
// from the database are logged and acknowledged.
func (w *SyncWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	slog.InfoContext(ctx, "Processing expense recorded message", "id", msg.ID, "timestamp", msg.Timestamp)

	err := w.processor.ExportExpense(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Expense not found, dropping message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync expense to sheets: %w", err)
	}
	return nil
}

// StartupSyncCheck exports pending expenses left over from worker downtime
// or lost messages. It returns how many were exported.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) int {
	total := 0
	for pass := 0; pass < maxStartupPasses; pass++ {
		n := w.processor.ProcessBatch(ctx)
		total += n
		if n < w.batchSize || ctx.Err() != nil {
			break
		}
	}
	if total == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
	} else {
		slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	}
	return total
}

// Run processes messages and sweeps pending expenses until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.StartupSyncCheck(ctx)

	if w.sweepInterval > 0 {
		go w.sweep(ctx)
	}

	if w.consumer == nil {
		<-ctx.Done()
		return nil
	}

	err := w.consumer.ConsumeExpenseRecorded(ctx, w.HandleExpenseRecorded)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *SyncWorker) sweep(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processor.RetryFailed(ctx)
			w.processor.ProcessBatch(ctx)
		}
	}
}
