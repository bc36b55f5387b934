package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength bounds the free-text description of an expense.
const MaxDescriptionLength = 200

type (
	Date struct {
		time.Time
	}

	// Expense is an immutable ledger record. AmountEUR is computed once,
	// at insertion time, from the rates held at that moment.
	Expense struct {
		ID          string
		Date        Date
		Amount      decimal.Decimal // original amount
		Currency    Currency
		AmountEUR   decimal.Decimal
		Category    string
		Subcategory string
		Description string
		CreatedAt   time.Time
	}

	// IncomeSource is a monthly income entry, always in EUR.
	IncomeSource struct {
		Label  string
		Amount decimal.Decimal
	}

	// CategoryAmount represents an amount aggregated by category name.
	CategoryAmount struct {
		Name   string
		Amount decimal.Decimal
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyLabel         = errors.New("empty income label")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNegativeIncome     = errors.New("income amount cannot be negative")
	ErrUnknownCategory    = errors.New("unknown category")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// String formats the date as dd/mm/yyyy.
func (d Date) String() string {
	return d.Format("02/01/2006")
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Currency.IsSupported() {
		return ErrUnsupportedCurrency
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (i IncomeSource) Validate() error {
	if strings.TrimSpace(i.Label) == "" {
		return ErrEmptyLabel
	}
	if i.Amount.IsNegative() {
		return ErrNegativeIncome
	}
	return nil
}
