package storage

import (
	"context"
)

const createExpense = `
INSERT INTO expenses (id, day, amount, currency, amount_eur, category, subcategory, description, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID          string
	Day         string
	Amount      string
	Currency    string
	AmountEur   string
	Category    string
	Subcategory string
	Description string
	CreatedAt   string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.Day,
		arg.Amount,
		arg.Currency,
		arg.AmountEur,
		arg.Category,
		arg.Subcategory,
		arg.Description,
		arg.CreatedAt,
	)
	return err
}

const expenseColumns = `id, day, amount, currency, amount_eur, category, subcategory, description, created_at, sync_status, sync_attempts, synced_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Day,
		&i.Amount,
		&i.Currency,
		&i.AmountEur,
		&i.Category,
		&i.Subcategory,
		&i.Description,
		&i.CreatedAt,
		&i.SyncStatus,
		&i.SyncAttempts,
		&i.SyncedAt,
	)
	return i, err
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY created_at, rowid`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	return q.queryExpenses(ctx, listExpenses)
}

const getPendingSyncExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE sync_status = 'pending'
ORDER BY created_at, rowid
LIMIT ?`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	return q.queryExpenses(ctx, getPendingSyncExpenses, limit)
}

func (q *Queries) queryExpenses(ctx context.Context, query string, args ...interface{}) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markExpenseSynced = `
UPDATE expenses SET sync_status = 'synced', synced_at = ?, sync_attempts = sync_attempts + 1 WHERE id = ?
`

func (q *Queries) MarkExpenseSynced(ctx context.Context, syncedAt string, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markExpenseSynced, syncedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markExpenseSyncError = `
UPDATE expenses SET sync_status = 'error', sync_attempts = sync_attempts + 1 WHERE id = ?
`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markExpenseSyncError, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const retryExpenseSyncErrors = `
UPDATE expenses SET sync_status = 'pending' WHERE sync_status = 'error' AND sync_attempts < ?
`

func (q *Queries) RetryExpenseSyncErrors(ctx context.Context, maxAttempts int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, retryExpenseSyncErrors, maxAttempts)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getExpenseSyncStatus = `SELECT sync_status FROM expenses WHERE id = ?`

func (q *Queries) GetExpenseSyncStatus(ctx context.Context, id string) (string, error) {
	row := q.db.QueryRowContext(ctx, getExpenseSyncStatus, id)
	var status string
	err := row.Scan(&status)
	return status, err
}

const countExpensesBySyncStatus = `SELECT sync_status, COUNT(*) FROM expenses GROUP BY sync_status`

type CountExpensesBySyncStatusRow struct {
	SyncStatus string
	Count      int64
}

func (q *Queries) CountExpensesBySyncStatus(ctx context.Context) ([]CountExpensesBySyncStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countExpensesBySyncStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountExpensesBySyncStatusRow
	for rows.Next() {
		var i CountExpensesBySyncStatusRow
		if err := rows.Scan(&i.SyncStatus, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertIncomeSource = `
INSERT INTO income_sources (label, amount, position, updated_at)
VALUES (?, ?, COALESCE((SELECT MAX(position) + 1 FROM income_sources), 0), ?)
ON CONFLICT (label) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
`

type UpsertIncomeSourceParams struct {
	Label     string
	Amount    string
	UpdatedAt string
}

func (q *Queries) UpsertIncomeSource(ctx context.Context, arg UpsertIncomeSourceParams) error {
	_, err := q.db.ExecContext(ctx, upsertIncomeSource, arg.Label, arg.Amount, arg.UpdatedAt)
	return err
}

const deleteIncomeSource = `DELETE FROM income_sources WHERE label = ?`

func (q *Queries) DeleteIncomeSource(ctx context.Context, label string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteIncomeSource, label)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listIncomeSources = `SELECT label, amount, position, updated_at FROM income_sources ORDER BY position`

func (q *Queries) ListIncomeSources(ctx context.Context) ([]IncomeSource, error) {
	rows, err := q.db.QueryContext(ctx, listIncomeSources)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IncomeSource
	for rows.Next() {
		var i IncomeSource
		if err := rows.Scan(&i.Label, &i.Amount, &i.Position, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countIncomeSources = `SELECT COUNT(*) FROM income_sources`

func (q *Queries) CountIncomeSources(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countIncomeSources).Scan(&count)
	return count, err
}

const createCategory = `INSERT INTO categories (name, parent) VALUES (?, ?) ON CONFLICT (parent, name) DO NOTHING`

type CreateCategoryParams struct {
	Name   string
	Parent string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.Name, arg.Parent)
	return err
}

const listCategories = `SELECT id, name, parent FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Parent); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRateSnapshot = `
INSERT INTO rate_snapshots (eur, usd, usdt, ars, source, fetched_at) VALUES (?, ?, ?, ?, ?, ?)
`

type CreateRateSnapshotParams struct {
	Eur       string
	Usd       string
	Usdt      string
	Ars       string
	Source    string
	FetchedAt string
}

func (q *Queries) CreateRateSnapshot(ctx context.Context, arg CreateRateSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, createRateSnapshot,
		arg.Eur,
		arg.Usd,
		arg.Usdt,
		arg.Ars,
		arg.Source,
		arg.FetchedAt,
	)
	return err
}

const getLatestRateSnapshot = `
SELECT id, eur, usd, usdt, ars, source, fetched_at FROM rate_snapshots ORDER BY id DESC LIMIT 1
`

func (q *Queries) GetLatestRateSnapshot(ctx context.Context) (RateSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getLatestRateSnapshot)
	var i RateSnapshot
	err := row.Scan(
		&i.ID,
		&i.Eur,
		&i.Usd,
		&i.Usdt,
		&i.Ars,
		&i.Source,
		&i.FetchedAt,
	)
	return i, err
}

const pruneRateSnapshots = `
DELETE FROM rate_snapshots WHERE id NOT IN (SELECT id FROM rate_snapshots ORDER BY id DESC LIMIT ?)
`

func (q *Queries) PruneRateSnapshots(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, pruneRateSnapshots, keep)
	return err
}
