package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

type fakeSettingsStore struct {
	income     map[string]decimal.Decimal
	deleted    []string
	categories [][2]string
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{income: map[string]decimal.Decimal{}}
}

func (f *fakeSettingsStore) SaveIncome(_ context.Context, src core.IncomeSource) error {
	f.income[src.Label] = src.Amount
	return nil
}

func (f *fakeSettingsStore) DeleteIncome(_ context.Context, label string) (bool, error) {
	f.deleted = append(f.deleted, label)
	_, ok := f.income[label]
	delete(f.income, label)
	return ok, nil
}

func (f *fakeSettingsStore) SaveCategory(_ context.Context, name, parent string) error {
	f.categories = append(f.categories, [2]string{name, parent})
	return nil
}

func TestSettingsService_Income(t *testing.T) {
	store := newFakeSettingsStore()
	income := core.NewIncomeTable()
	s := NewSettingsService(income, core.NewCategoryTable(), store)
	ctx := context.Background()

	src, err := s.SetIncome(ctx, "  sueldo ", decimal.NewFromInt(1800))
	if err != nil {
		t.Fatalf("SetIncome: %v", err)
	}
	if src.Label != "sueldo" {
		t.Errorf("label should be trimmed, got %q", src.Label)
	}
	if !income.Total().Equal(decimal.NewFromInt(1800)) {
		t.Errorf("unexpected total %s", income.Total())
	}
	if _, ok := store.income["sueldo"]; !ok {
		t.Error("income not persisted")
	}

	if _, err := s.SetIncome(ctx, "bono", decimal.NewFromInt(-5)); !errors.Is(err, core.ErrNegativeIncome) {
		t.Errorf("expected ErrNegativeIncome, got %v", err)
	}
	if _, ok := store.income["bono"]; ok {
		t.Error("rejected income must not be persisted")
	}

	if !s.RemoveIncome(ctx, "sueldo") {
		t.Error("RemoveIncome should report removal")
	}
	if s.RemoveIncome(ctx, "sueldo") {
		t.Error("second RemoveIncome should report false")
	}
	if len(store.deleted) != 1 {
		t.Errorf("store delete should run once, ran %d", len(store.deleted))
	}
}

func TestSettingsService_Categories(t *testing.T) {
	store := newFakeSettingsStore()
	cats := core.NewCategoryTable()
	s := NewSettingsService(core.NewIncomeTable(), cats, store)
	ctx := context.Background()

	tests := []struct {
		name        string
		category    string
		parent      string
		wantChanged bool
		wantErr     error
	}{
		{"new category", "Comida", "", true, nil},
		{"duplicate category", "Comida", "", false, nil},
		{"new subcategory", "Delivery", "Comida", true, nil},
		{"duplicate subcategory", " Delivery ", "Comida", false, nil},
		{"unknown parent", "Netflix", "TV", false, core.ErrUnknownCategory},
		{"blank name", "  ", "", false, core.ErrEmptyCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := s.AddCategory(ctx, tt.category, tt.parent)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}

	if len(store.categories) != 2 {
		t.Errorf("expected 2 persisted categories, got %v", store.categories)
	}
	if got := cats.Subcategories("Comida"); len(got) != 1 || got[0] != "Delivery" {
		t.Errorf("unexpected subcategories %v", got)
	}
}
