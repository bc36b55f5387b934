package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"ahorrosmart/internal/core"
	ports "ahorrosmart/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab expenses are appended to.
const DefaultSheetName = "Gastos"

// Config selects the target spreadsheet and the service account used to
// reach it. Inline JSON wins over CredentialsFile, which wins over
// ApplicationCredentials.
type Config struct {
	SpreadsheetID          string
	SheetName              string
	CredentialsJSON        string
	CredentialsFile        string
	ApplicationCredentials string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
}

var _ ports.ExpenseExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	return newClient(ctx, cfg, opts...)
}

// NewWithHTTPClient creates a client that sends every request through hc
// without adding credentials. endpoint overrides the API base URL when set.
func NewWithHTTPClient(ctx context.Context, cfg Config, hc *http.Client, endpoint string) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts := []goption.ClientOption{goption.WithHTTPClient(hc)}
	if endpoint != "" {
		opts = append(opts, goption.WithEndpoint(endpoint))
	}
	return newClient(ctx, cfg, opts...)
}

func newClient(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	slog.InfoContext(ctx, "Google Sheets client ready", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, expensesSheet: sheet}, nil
}

func credentialsJSON(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(cfg.ApplicationCredentials)
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append writes e as a new row at the end of the expenses sheet.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:G", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// expenseRow lays out one expense as: date, description, amount, currency,
// amount in EUR, category, subcategory.
func expenseRow(e core.Expense) []any {
	return []any{
		e.Date.String(),
		e.Description,
		e.Amount.InexactFloat64(),
		e.Currency.String(),
		e.AmountEUR.Round(2).InexactFloat64(),
		e.Category,
		e.Subcategory,
	}
}
