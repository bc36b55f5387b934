package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCategoryTable(t *testing.T) {
	tbl := DefaultCategories()
	names := tbl.Names()
	if len(names) != 7 || names[0] != "Comida" || names[6] != "IA" {
		t.Fatalf("unexpected default categories %v", names)
	}

	if tbl.AddCategory("   ") {
		t.Fatalf("blank category must be ignored")
	}
	if tbl.AddCategory("Comida") {
		t.Fatalf("duplicate category must be ignored")
	}
	if !tbl.AddCategory(" Viajes ") {
		t.Fatalf("expected new category to be added")
	}
	if got := tbl.Names(); got[len(got)-1] != "Viajes" {
		t.Fatalf("expected Viajes last, got %v", got)
	}

	if changed, err := tbl.AddSubcategory("Viajes", "Vuelos"); err != nil || !changed {
		t.Fatalf("expected subcategory added, changed=%v err=%v", changed, err)
	}
	if changed, _ := tbl.AddSubcategory("Viajes", "Vuelos"); changed {
		t.Fatalf("duplicate subcategory must be ignored")
	}
	if changed, _ := tbl.AddSubcategory("Viajes", ""); changed {
		t.Fatalf("blank subcategory must be ignored")
	}
	if _, err := tbl.AddSubcategory("Nope", "x"); err != ErrUnknownCategory {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if subs := tbl.Subcategories("Comida"); len(subs) != 3 || subs[2] != "Delivery" {
		t.Fatalf("unexpected subcategories %v", subs)
	}

	snap := tbl.Snapshot()
	snap[0].Subcategories[0] = "mutated"
	if tbl.Subcategories("Comida")[0] != "Supermercado" {
		t.Fatalf("snapshot must not alias table state")
	}
}

func TestIncomeTable(t *testing.T) {
	tbl := DefaultIncome()
	if !tbl.Total().Equal(decimal.NewFromInt(2050)) {
		t.Fatalf("expected default total 2050, got %s", tbl.Total())
	}
	if err := tbl.Set("sueldo", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !tbl.Total().Equal(decimal.NewFromInt(2250)) {
		t.Fatalf("expected 2250, got %s", tbl.Total())
	}
	if entries := tbl.Entries(); entries[0].Label != "sueldo" || len(entries) != 2 {
		t.Fatalf("replacing must keep order, got %v", entries)
	}
	if err := tbl.Set("", decimal.NewFromInt(1)); err != ErrEmptyLabel {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
	if err := tbl.Set("x", decimal.NewFromInt(-1)); err != ErrNegativeIncome {
		t.Fatalf("expected ErrNegativeIncome, got %v", err)
	}
	if !tbl.Remove("freelance") || tbl.Remove("freelance") {
		t.Fatalf("remove should succeed once")
	}
	if !tbl.Total().Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected 2000 after remove, got %s", tbl.Total())
	}
}
