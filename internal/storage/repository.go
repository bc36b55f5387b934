package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/rates"

	_ "modernc.org/sqlite"
)

const (
	dayLayout       = "2006-01-02"
	timestampLayout = time.RFC3339Nano

	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
	SyncStatusError   = "error"

	rateSnapshotsKept = 100
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveExpense persists a ledger record with sync status pending.
func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) error {
	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          e.ID,
		Day:         e.Date.Format(dayLayout),
		Amount:      e.Amount.String(),
		Currency:    e.Currency.String(),
		AmountEur:   e.AmountEUR.String(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"amount", e.Amount.String(),
		"currency", e.Currency,
		"amount_eur", e.AmountEUR.StringFixed(2))
	return nil
}

// GetExpense returns the record with the given id, or ErrNotFound.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toCoreExpense(row)
}

// ListExpenses returns every stored record in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCoreExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toCoreExpense(row Expense) (core.Expense, error) {
	day, err := time.Parse(dayLayout, row.Day)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: parse day %q: %w", row.ID, row.Day, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: parse amount %q: %w", row.ID, row.Amount, err)
	}
	amountEUR, err := decimal.NewFromString(row.AmountEur)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: parse amount_eur %q: %w", row.ID, row.AmountEur, err)
	}
	createdAt, err := time.Parse(timestampLayout, row.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: parse created_at %q: %w", row.ID, row.CreatedAt, err)
	}
	return core.Expense{
		ID:          row.ID,
		Date:        core.DateOf(day),
		Amount:      amount,
		Currency:    core.Currency(row.Currency),
		AmountEUR:   amountEUR,
		Category:    row.Category,
		Subcategory: row.Subcategory,
		Description: row.Description,
		CreatedAt:   createdAt,
	}, nil
}

// PendingSyncExpense represents minimal data needed for sync queue messages
type PendingSyncExpense struct {
	ID        string
	CreatedAt time.Time
}

// GetPendingSyncExpenses returns expenses that still need exporting, oldest first.
func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}

	out := make([]PendingSyncExpense, len(rows))
	for i, row := range rows {
		createdAt, _ := time.Parse(timestampLayout, row.CreatedAt)
		out[i] = PendingSyncExpense{ID: row.ID, CreatedAt: createdAt}
	}
	return out, nil
}

// MarkSynced marks an expense as successfully exported
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	n, err := r.queries.MarkExpenseSynced(ctx, time.Now().UTC().Format(timestampLayout), id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark expense synced %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an expense as having failed to export
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	n, err := r.queries.MarkExpenseSyncError(ctx, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark expense sync error %s: %w", id, ErrNotFound)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// SyncStatus returns the sync status of one expense, or ErrNotFound.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id string) (string, error) {
	status, err := r.queries.GetExpenseSyncStatus(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return status, nil
}

// RetrySyncErrors moves failed expenses with fewer than maxAttempts
// attempts back to pending. It returns how many were reset.
func (r *SQLiteRepository) RetrySyncErrors(ctx context.Context, maxAttempts int) (int64, error) {
	n, err := r.queries.RetryExpenseSyncErrors(ctx, int64(maxAttempts))
	if err != nil {
		return 0, fmt.Errorf("retry expense sync errors: %w", err)
	}
	return n, nil
}

// SyncStats counts stored expenses by sync status.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	rows, err := r.queries.CountExpensesBySyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count expenses by sync status: %w", err)
	}
	stats := map[string]int64{
		SyncStatusPending: 0,
		SyncStatusSynced:  0,
		SyncStatusError:   0,
	}
	for _, row := range rows {
		stats[row.SyncStatus] = row.Count
	}
	return stats, nil
}

// SaveIncome creates or updates an income source.
func (r *SQLiteRepository) SaveIncome(ctx context.Context, src core.IncomeSource) error {
	if err := src.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertIncomeSource(ctx, UpsertIncomeSourceParams{
		Label:     src.Label,
		Amount:    src.Amount.String(),
		UpdatedAt: time.Now().UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("upsert income source: %w", err)
	}
	return nil
}

// DeleteIncome removes an income source and reports whether it existed.
func (r *SQLiteRepository) DeleteIncome(ctx context.Context, label string) (bool, error) {
	n, err := r.queries.DeleteIncomeSource(ctx, label)
	if err != nil {
		return false, fmt.Errorf("delete income source: %w", err)
	}
	return n > 0, nil
}

// ListIncome returns the stored income sources in creation order.
func (r *SQLiteRepository) ListIncome(ctx context.Context) ([]core.IncomeSource, error) {
	rows, err := r.queries.ListIncomeSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	out := make([]core.IncomeSource, 0, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("income %s: parse amount %q: %w", row.Label, row.Amount, err)
		}
		out = append(out, core.IncomeSource{Label: row.Label, Amount: amount})
	}
	return out, nil
}

// HasIncome reports whether any income source was ever stored.
func (r *SQLiteRepository) HasIncome(ctx context.Context) (bool, error) {
	n, err := r.queries.CountIncomeSources(ctx)
	if err != nil {
		return false, fmt.Errorf("count income sources: %w", err)
	}
	return n > 0, nil
}

// SaveCategory stores a category, or a subcategory when parent is set.
// Duplicates are ignored.
func (r *SQLiteRepository) SaveCategory(ctx context.Context, name, parent string) error {
	if err := r.queries.CreateCategory(ctx, CreateCategoryParams{Name: name, Parent: parent}); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// ListCategories returns stored categories with their subcategories, in
// insertion order.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.CategoryEntry, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	index := make(map[string]int)
	var out []core.CategoryEntry
	for _, row := range rows {
		if row.Parent == "" {
			if _, ok := index[row.Name]; !ok {
				index[row.Name] = len(out)
				out = append(out, core.CategoryEntry{Name: row.Name, Subcategories: []string{}})
			}
		}
	}
	for _, row := range rows {
		if row.Parent == "" {
			continue
		}
		i, ok := index[row.Parent]
		if !ok {
			slog.WarnContext(ctx, "Subcategory with unknown parent", "name", row.Name, "parent", row.Parent)
			continue
		}
		out[i].Subcategories = append(out[i].Subcategories, row.Name)
	}
	return out, nil
}

// SaveRates stores a rate table snapshot, keeping only the most recent ones.
func (r *SQLiteRepository) SaveRates(ctx context.Context, t rates.Table, source string, fetchedAt time.Time) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("save rates: %w", err)
	}
	err := r.queries.CreateRateSnapshot(ctx, CreateRateSnapshotParams{
		Eur:       t[core.EUR].String(),
		Usd:       t[core.USD].String(),
		Usdt:      t[core.USDT].String(),
		Ars:       t[core.ARS].String(),
		Source:    source,
		FetchedAt: fetchedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("create rate snapshot: %w", err)
	}
	if err := r.queries.PruneRateSnapshots(ctx, rateSnapshotsKept); err != nil {
		slog.WarnContext(ctx, "Failed to prune rate snapshots", "error", err)
	}
	return nil
}

// LatestRates returns the most recent stored table, or ErrNotFound.
func (r *SQLiteRepository) LatestRates(ctx context.Context) (rates.Table, time.Time, error) {
	row, err := r.queries.GetLatestRateSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("rate snapshot: %w", ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get latest rate snapshot: %w", err)
	}

	t := rates.Table{}
	for c, raw := range map[core.Currency]string{core.EUR: row.Eur, core.USD: row.Usd, core.USDT: row.Usdt, core.ARS: row.Ars} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("rate snapshot %d: parse %s %q: %w", row.ID, c, raw, err)
		}
		t[c] = v
	}
	fetchedAt, _ := time.Parse(timestampLayout, row.FetchedAt)
	return t, fetchedAt, nil
}
