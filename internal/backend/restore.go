package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ahorrosmart/internal/session"
	"ahorrosmart/internal/storage"
)

// RestoreState loads the persisted ledger, income, categories and latest
// rate snapshot into s. On a fresh database the in-memory defaults are
// written out instead, so later edits start from them.
func RestoreState(ctx context.Context, repo *storage.SQLiteRepository, s *session.State) error {
	records, err := repo.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	if err := s.Ledger.Restore(records); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	if err := restoreIncome(ctx, repo, s); err != nil {
		return err
	}
	if err := restoreCategories(ctx, repo, s); err != nil {
		return err
	}

	table, fetchedAt, err := repo.LatestRates(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load rates: %w", err)
	default:
		if err := s.Rates.Restore(table); err != nil {
			slog.WarnContext(ctx, "Ignoring invalid stored rate snapshot", "error", err)
		} else {
			slog.InfoContext(ctx, "Restored rate snapshot", "fetched_at", fetchedAt)
		}
	}

	slog.InfoContext(ctx, "State restored from SQLite",
		"expenses", len(records),
		"income_sources", len(s.Income.Entries()),
		"categories", len(s.Categories.Names()))
	return nil
}

func restoreIncome(ctx context.Context, repo *storage.SQLiteRepository, s *session.State) error {
	has, err := repo.HasIncome(ctx)
	if err != nil {
		return fmt.Errorf("check income: %w", err)
	}
	if !has {
		for _, src := range s.Income.Entries() {
			if err := repo.SaveIncome(ctx, src); err != nil {
				return fmt.Errorf("seed income: %w", err)
			}
		}
		return nil
	}

	stored, err := repo.ListIncome(ctx)
	if err != nil {
		return fmt.Errorf("load income: %w", err)
	}
	for _, src := range s.Income.Entries() {
		s.Income.Remove(src.Label)
	}
	for _, src := range stored {
		if err := s.Income.Set(src.Label, src.Amount); err != nil {
			return fmt.Errorf("restore income %q: %w", src.Label, err)
		}
	}
	return nil
}

func restoreCategories(ctx context.Context, repo *storage.SQLiteRepository, s *session.State) error {
	stored, err := repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	if len(stored) == 0 {
		for _, entry := range s.Categories.Snapshot() {
			if err := repo.SaveCategory(ctx, entry.Name, ""); err != nil {
				return fmt.Errorf("seed categories: %w", err)
			}
			for _, sub := range entry.Subcategories {
				if err := repo.SaveCategory(ctx, sub, entry.Name); err != nil {
					return fmt.Errorf("seed categories: %w", err)
				}
			}
		}
		return nil
	}

	for _, entry := range stored {
		s.Categories.AddCategory(entry.Name)
		for _, sub := range entry.Subcategories {
			if _, err := s.Categories.AddSubcategory(entry.Name, sub); err != nil {
				return fmt.Errorf("restore subcategory %q: %w", sub, err)
			}
		}
	}
	return nil
}
