package storage

import "database/sql"

type Expense struct {
	ID           string
	Day          string
	Amount       string
	Currency     string
	AmountEur    string
	Category     string
	Subcategory  string
	Description  string
	CreatedAt    string
	SyncStatus   string
	SyncAttempts int64
	SyncedAt     sql.NullString
}

type IncomeSource struct {
	Label     string
	Amount    string
	Position  int64
	UpdatedAt string
}

type Category struct {
	ID     int64
	Name   string
	Parent string
}

type RateSnapshot struct {
	ID        int64
	Eur       string
	Usd       string
	Usdt      string
	Ars       string
	Source    string
	FetchedAt string
}
