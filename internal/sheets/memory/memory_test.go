package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

func validExpense() core.Expense {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return core.Expense{
		ID:        "e-1",
		Date:      core.DateOf(now),
		Amount:    decimal.NewFromInt(12),
		Currency:  core.EUR,
		AmountEUR: decimal.NewFromInt(12),
		Category:  "Comida",
		CreatedAt: now,
	}
}

func TestMemoryStoreAppend(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), validExpense())
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = s.Append(context.Background(), validExpense())
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if got := len(s.Exported()); got != 2 {
		t.Fatalf("expected 2 exported, got %d", got)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	e := validExpense()
	e.Category = " "

	if _, err := s.Append(context.Background(), e); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if len(s.Exported()) != 0 {
		t.Fatal("invalid expense should not be stored")
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.FailWith(boom)

	if _, err := s.Append(context.Background(), validExpense()); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	s.FailWith(nil)
	if _, err := s.Append(context.Background(), validExpense()); err != nil {
		t.Fatalf("unexpected error after clearing failure: %v", err)
	}
}
