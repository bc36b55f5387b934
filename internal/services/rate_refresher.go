package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ahorrosmart/internal/rates"
)

// RateStore persists successfully refreshed tables.
type RateStore interface {
	SaveRates(ctx context.Context, t rates.Table, source string, fetchedAt time.Time) error
}

// RateRefresher refreshes the provider on demand and, once started, on a
// fixed interval.
type RateRefresher struct {
	provider *rates.Provider
	storage  RateStore
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRateRefresher creates a refresher. storage may be nil.
func NewRateRefresher(provider *rates.Provider, storage RateStore, interval time.Duration) *RateRefresher {
	return &RateRefresher{
		provider: provider,
		storage:  storage,
		interval: interval,
	}
}

// Refresh runs one refresh and persists the table when it succeeds.
func (r *RateRefresher) Refresh(ctx context.Context) rates.Result {
	res := r.provider.Refresh(ctx)
	if res.OK() && r.storage != nil {
		if err := r.storage.SaveRates(ctx, res.Table, r.provider.SourceName(), res.FetchedAt); err != nil {
			slog.ErrorContext(ctx, "Failed to persist rate snapshot", "error", err)
		}
	}
	return res
}

// Start begins the periodic loop. Returns an error if already running or
// if the interval is not positive.
func (r *RateRefresher) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("rate refresher interval must be positive, got %v", r.interval)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("rate refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Rate refresher started", "interval", r.interval)
	return nil
}

// Stop stops the loop and waits for the current refresh to finish.
func (r *RateRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Rate refresher stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Rate refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning returns whether the loop is active.
func (r *RateRefresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RateRefresher) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
