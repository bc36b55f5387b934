package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

// SettingsStore persists the income and category tables.
type SettingsStore interface {
	SaveIncome(ctx context.Context, src core.IncomeSource) error
	DeleteIncome(ctx context.Context, label string) (bool, error)
	SaveCategory(ctx context.Context, name, parent string) error
}

// SettingsService edits the income and category tables and mirrors each
// change to an optional store. Store failures are logged, not returned.
type SettingsService struct {
	income     *core.IncomeTable
	categories *core.CategoryTable
	storage    SettingsStore
}

func NewSettingsService(income *core.IncomeTable, categories *core.CategoryTable, storage SettingsStore) *SettingsService {
	return &SettingsService{income: income, categories: categories, storage: storage}
}

// SetIncome creates or replaces an income source.
func (s *SettingsService) SetIncome(ctx context.Context, label string, amount decimal.Decimal) (core.IncomeSource, error) {
	if err := s.income.Set(label, amount); err != nil {
		return core.IncomeSource{}, err
	}
	src := core.IncomeSource{Label: strings.TrimSpace(label), Amount: amount}
	if s.storage != nil {
		if err := s.storage.SaveIncome(ctx, src); err != nil {
			slog.ErrorContext(ctx, "Failed to persist income source", "label", src.Label, "error", err)
		}
	}
	return src, nil
}

// RemoveIncome deletes an income source and reports whether it existed.
func (s *SettingsService) RemoveIncome(ctx context.Context, label string) bool {
	removed := s.income.Remove(label)
	if removed && s.storage != nil {
		if _, err := s.storage.DeleteIncome(ctx, strings.TrimSpace(label)); err != nil {
			slog.ErrorContext(ctx, "Failed to delete income source", "label", label, "error", err)
		}
	}
	return removed
}

// AddCategory adds a category, or a subcategory when parent is set.
// It reports whether the table changed.
func (s *SettingsService) AddCategory(ctx context.Context, name, parent string) (bool, error) {
	name, parent = strings.TrimSpace(name), strings.TrimSpace(parent)
	if name == "" {
		return false, core.ErrEmptyCategory
	}

	var changed bool
	if parent == "" {
		changed = s.categories.AddCategory(name)
	} else {
		var err error
		changed, err = s.categories.AddSubcategory(parent, name)
		if err != nil {
			return false, err
		}
	}

	if changed && s.storage != nil {
		if err := s.storage.SaveCategory(ctx, name, parent); err != nil {
			slog.ErrorContext(ctx, "Failed to persist category", "name", name, "parent", parent, "error", err)
		}
	}
	return changed, nil
}
