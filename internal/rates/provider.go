package rates

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"ahorrosmart/internal/core"
)

// Source fetches a complete rate table from somewhere.
type Source interface {
	Fetch(ctx context.Context) (Table, error)
	Name() string
}

// Provider owns the current rate table. The table is only ever replaced
// wholesale by a successful, validated refresh.
type Provider struct {
	mu     sync.RWMutex
	table  Table
	last   Result
	source Source
	clock  core.Clock
	group  singleflight.Group
}

// NewProvider creates a provider holding initial, or DefaultTable when
// initial is nil or invalid.
func NewProvider(source Source, initial Table, clock core.Clock) *Provider {
	if initial == nil || initial.Validate() != nil {
		initial = DefaultTable()
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Provider{
		table:  initial.Clone(),
		last:   Result{Status: StatusNone, Table: initial.Clone()},
		source: source,
		clock:  clock,
	}
}

// refreshTimeout bounds a shared fetch once it no longer follows the
// context of the caller that started it.
const refreshTimeout = 30 * time.Second

// Refresh fetches a new table from the source. Concurrent callers share a
// single fetch and receive the same result. A caller whose ctx ends first
// gets a network error result; the shared fetch keeps running for the rest.
func (p *Provider) Refresh(ctx context.Context) Result {
	ch := p.group.DoChan("refresh", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return p.refresh(fetchCtx), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return Result{
			Status:    StatusNetworkError,
			Err:       fmt.Errorf("%w: %v", ErrNetwork, ctx.Err()),
			Table:     p.Snapshot(),
			FetchedAt: p.clock.Now(),
		}
	}
}

func (p *Provider) refresh(ctx context.Context) Result {
	if p.source == nil {
		return p.fail(ctx, fmt.Errorf("no rate source configured: %w", ErrNetwork))
	}

	table, err := p.source.Fetch(ctx)
	if err == nil {
		if verr := table.Validate(); verr != nil {
			err = fmt.Errorf("%w: %v", ErrParse, verr)
		}
	}
	if err != nil {
		return p.fail(ctx, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.table = table.Clone()
	p.last = Result{
		Status:    StatusOK,
		Table:     table.Clone(),
		FetchedAt: p.clock.Now(),
	}
	slog.InfoContext(ctx, "Rates refreshed", "source", p.source.Name(), "rates", p.table.Floats())
	return p.last
}

func (p *Provider) fail(ctx context.Context, err error) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = Result{
		Status:    statusOf(err),
		Err:       err,
		Table:     p.table.Clone(),
		FetchedAt: p.clock.Now(),
	}
	slog.WarnContext(ctx, "Rate refresh failed, keeping previous rates",
		"status", p.last.Status,
		"error", err)
	return p.last
}

// Get returns the current factor for c.
func (p *Provider) Get(c core.Currency) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table.Get(c)
}

// Snapshot returns a copy of the current table.
func (p *Provider) Snapshot() Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table.Clone()
}

// Converter returns a converter bound to a snapshot of the current table.
func (p *Provider) Converter() Converter {
	return NewConverter(p.Snapshot())
}

// LastResult returns the outcome of the most recent refresh.
func (p *Provider) LastResult() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r := p.last
	r.Table = r.Table.Clone()
	return r
}

// Restore replaces the table with a previously persisted one.
func (p *Provider) Restore(t Table) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("restore rates: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table = t.Clone()
	p.last.Table = t.Clone()
	return nil
}

// SourceName names the configured source, or "none".
func (p *Provider) SourceName() string {
	if p.source == nil {
		return "none"
	}
	return p.source.Name()
}
