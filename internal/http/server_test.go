package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/budget"
	"ahorrosmart/internal/core"
	"ahorrosmart/internal/middleware/ratelimit"
	"ahorrosmart/internal/rates"
	"ahorrosmart/internal/services"
	"ahorrosmart/internal/session"
)

type stubSource struct {
	table rates.Table
	err   error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) (rates.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.table.Clone(), nil
}

func newTestServer(t *testing.T, source rates.Source) (*Server, *session.State) {
	t.Helper()
	clock := &core.MockClock{FixedNow: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
	provider := rates.NewProvider(source, nil, clock)
	state := session.New(session.Options{Provider: provider, Clock: clock, Goal: budget.DefaultSavingsGoal})
	srv := NewServer(Options{
		Addr:      ":0",
		State:     state,
		Expenses:  services.NewExpenseService(state.Ledger, nil, nil),
		Settings:  services.NewSettingsService(state.Income, state.Categories, nil),
		Refresher: services.NewRateRefresher(provider, nil, 0),
		RateLimit: ratelimit.Config{RequestsPerMinute: 6000, Burst: 100},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, state
}

func do(srv *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

const formType = "application/x-www-form-urlencoded"

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(srv, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Registrar gasto", "Resumen del mes", "¡Vas bien para ahorrar 150€!", "Comida"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}

	if rr := do(srv, http.MethodGet, "/no-such-page", "", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d, want 404", rr.Code)
	}

	for _, path := range []string{"/healthz", "/readyz", "/ui/overview"} {
		rr := do(srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = do(srv, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	for _, want := range []string{"http_requests_total", "expenses_recorded_total 0", "ledger_records 0", "uptime_seconds"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSecurityAndTraceHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(srv, http.MethodGet, "/healthz", "", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	rr = do(srv, "TRACE", "/", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("TRACE status=%d, want 405", rr.Code)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	srv, state := newTestServer(t, nil)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"wrong method", http.MethodGet, "", "", http.StatusMethodNotAllowed},
		{"invalid amount", http.MethodPost, formType, "amount=abc&currency=EUR&category=Comida", http.StatusUnprocessableEntity},
		{"zero amount", http.MethodPost, formType, "amount=0&currency=EUR&category=Comida", http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, formType, "amount=-5&currency=EUR&category=Comida", http.StatusUnprocessableEntity},
		{"unsupported currency", http.MethodPost, formType, "amount=10&currency=BTC&category=Comida", http.StatusUnprocessableEntity},
		{"missing category", http.MethodPost, formType, "amount=10&currency=EUR", http.StatusUnprocessableEntity},
		{"unknown category", http.MethodPost, formType, "amount=10&currency=EUR&category=Viajes", http.StatusUnprocessableEntity},
		{"description too long", http.MethodPost, formType, "amount=10&category=Comida&description=" + strings.Repeat("x", 201), http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "application/json", `{"amount": `, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, tt.method, "/expenses", tt.contentType, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d (body %q)", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}

	if n := state.Ledger.Len(); n != 0 {
		t.Fatalf("ledger has %d records after rejected requests", n)
	}
}

func TestCreateExpenseForm(t *testing.T) {
	srv, state := newTestServer(t, nil)

	rr := do(srv, http.MethodPost, "/expenses", formType,
		"amount=12,50&currency=EUR&category=Comida&subcategory=Supermercado&description=compra")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"expense:created"`, `"form:reset"`, `"show-notification"`} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}
	if !strings.Contains(rr.Body.String(), "Gasto registrado") {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	records := state.Ledger.Records()
	if len(records) != 1 {
		t.Fatalf("ledger len=%d, want 1", len(records))
	}
	e := records[0]
	if !e.AmountEUR.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("AmountEUR=%s, want 12.5", e.AmountEUR)
	}
	if e.Date.String() != "14/03/2025" {
		t.Errorf("Date=%s, want 14/03/2025", e.Date)
	}
}

func TestCreateExpenseJSON(t *testing.T) {
	srv, state := newTestServer(t, nil)

	rr := do(srv, http.MethodPost, "/expenses", "application/json",
		`{"amount": "100", "currency": "ARS", "category": "Movilidad", "description": "colectivo"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}

	var got struct {
		ID        string          `json:"id"`
		Currency  string          `json:"currency"`
		AmountEUR decimal.Decimal `json:"amount_eur"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || got.Currency != "ARS" {
		t.Errorf("unexpected response %+v", got)
	}
	want := decimal.NewFromInt(100).DivRound(decimal.NewFromInt(1026), 16)
	if !got.AmountEUR.Equal(want) {
		t.Errorf("amount_eur=%s, want %s", got.AmountEUR, want)
	}
	if !state.Ledger.TotalSpent().Equal(want) {
		t.Errorf("TotalSpent=%s, want %s", state.Ledger.TotalSpent(), want)
	}
}

func TestDashboardAPI(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, body := range []string{
		"amount=90&currency=EUR&category=Comida",
		"amount=10&currency=EUR&category=TV",
	} {
		if rr := do(srv, http.MethodPost, "/expenses", formType, body); rr.Code != http.StatusOK {
			t.Fatalf("create status=%d", rr.Code)
		}
	}

	rr := do(srv, http.MethodGet, "/api/dashboard", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got struct {
		Income    decimal.Decimal `json:"income_total"`
		Budget    decimal.Decimal `json:"budget"`
		Spent     decimal.Decimal `json:"total_spent"`
		Remaining decimal.Decimal `json:"remaining"`
		Status    string          `json:"status"`
		Breakdown []struct {
			Name    string          `json:"name"`
			Percent decimal.Decimal `json:"percent"`
		} `json:"breakdown"`
		Expenses      []json.RawMessage `json:"expenses"`
		IncomeSources []json.RawMessage `json:"income_sources"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"income", got.Income, 2050},
		{"budget", got.Budget, 1900},
		{"spent", got.Spent, 100},
		{"remaining", got.Remaining, 1800},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.NewFromInt(c.want)) {
			t.Errorf("%s=%s, want %d", c.name, c.got, c.want)
		}
	}
	if got.Status != "on_track" {
		t.Errorf("status=%q, want on_track", got.Status)
	}
	if len(got.Breakdown) != 2 || got.Breakdown[0].Name != "Comida" || !got.Breakdown[0].Percent.Equal(decimal.NewFromInt(90)) {
		t.Errorf("unexpected breakdown %+v", got.Breakdown)
	}
	if len(got.Expenses) != 2 || len(got.IncomeSources) != 2 {
		t.Errorf("expenses=%d income=%d, want 2 and 2", len(got.Expenses), len(got.IncomeSources))
	}

	rr = do(srv, http.MethodGet, "/api/expenses", "", "")
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("api/expenses: len=%d err=%v", len(list), err)
	}
	if list[0]["category"] != "Comida" {
		t.Errorf("first record category=%v", list[0]["category"])
	}
}

func TestConvert(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		query      string
		wantStatus int
		want       string
	}{
		{"amount=100&from=EUR&to=USD", http.StatusOK, "108"},
		{"amount=1026&from=ARS&to=EUR", http.StatusOK, "1"},
		{"amount=5&from=USDT&to=USDT", http.StatusOK, "5"},
		{"amount=abc&from=EUR&to=USD", http.StatusBadRequest, ""},
		{"amount=10&from=EUR&to=BTC", http.StatusBadRequest, ""},
		{"from=EUR&to=USD", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(srv, http.MethodGet, "/convert?"+tt.query, "", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.want == "" {
				return
			}
			var got struct {
				Result decimal.Decimal `json:"result"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !got.Result.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("result=%s, want %s", got.Result, tt.want)
			}
		})
	}
}

func TestRefreshRates(t *testing.T) {
	fresh := rates.Table{
		core.EUR:  decimal.NewFromInt(1),
		core.USD:  decimal.RequireFromString("1.10"),
		core.USDT: decimal.RequireFromString("1.09"),
		core.ARS:  decimal.NewFromInt(1200),
	}

	tests := []struct {
		name       string
		source     *stubSource
		wantStatus int
		wantARS    string
	}{
		{"ok", &stubSource{table: fresh}, http.StatusOK, "1200"},
		{"network error", &stubSource{err: fmt.Errorf("dial: %w", rates.ErrNetwork)}, http.StatusBadGateway, "1026"},
		{"parse error", &stubSource{err: fmt.Errorf("bad body: %w", rates.ErrParse)}, http.StatusUnprocessableEntity, "1026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, state := newTestServer(t, tt.source)

			req := httptest.NewRequest(http.MethodPost, "/rates/refresh", nil)
			req.Header.Set("Accept", "application/json")
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantStatus)
			}
			ars, err := state.Rates.Get(core.ARS)
			if err != nil {
				t.Fatal(err)
			}
			if !ars.Equal(decimal.RequireFromString(tt.wantARS)) {
				t.Errorf("ARS=%s, want %s", ars, tt.wantARS)
			}
			if tt.wantStatus != http.StatusOK && !strings.Contains(rr.Body.String(), `"error"`) {
				t.Errorf("failure body has no error field: %s", rr.Body.String())
			}
		})
	}
}

func TestRefreshRatesHTMX(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{err: rates.ErrNetwork})

	req := httptest.NewRequest(http.MethodPost, "/rates/refresh", nil)
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"rates:refreshed"`) || !strings.Contains(trigger, `"network_error"`) {
		t.Errorf("unexpected HX-Trigger %s", trigger)
	}

	rr = do(srv, http.MethodGet, "/api/rates", "", "")
	if !strings.Contains(rr.Body.String(), `"network_error"`) {
		t.Errorf("api/rates does not report the failed refresh: %s", rr.Body.String())
	}
}

func TestIncomeHandlers(t *testing.T) {
	srv, state := newTestServer(t, nil)

	rr := do(srv, http.MethodPost, "/income", formType, "label=sueldo&amount=2000")
	if rr.Code != http.StatusOK {
		t.Fatalf("set status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"income:updated"`) {
		t.Errorf("missing income:updated trigger")
	}
	if !state.Income.Total().Equal(decimal.NewFromInt(2250)) {
		t.Errorf("income total=%s, want 2250", state.Income.Total())
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"negative amount", http.MethodPost, "/income", "label=extra&amount=-10", http.StatusUnprocessableEntity},
		{"empty label", http.MethodPost, "/income", "label=&amount=10", http.StatusUnprocessableEntity},
		{"zero amount", http.MethodPost, "/income", "label=extra&amount=0", http.StatusOK},
		{"wrong method", http.MethodGet, "/income", "", http.StatusMethodNotAllowed},
		{"delete", http.MethodPost, "/income/delete", "label=freelance", http.StatusOK},
		{"delete again", http.MethodPost, "/income/delete", "label=freelance", http.StatusNotFound},
		{"delete without label", http.MethodPost, "/income/delete", "", http.StatusBadRequest},
		{"delete wrong method", http.MethodGet, "/income/delete", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, tt.method, tt.path, formType, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d (body %q)", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}

	if !state.Income.Total().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("income total=%s, want 2000", state.Income.Total())
	}

	req := httptest.NewRequest(http.MethodDelete, "/income/delete?label=extra", nil)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("DELETE status=%d", rr.Code)
	}
}

func TestCreateExpenseOversizedBody(t *testing.T) {
	srv, state := newTestServer(t, nil)

	body := "amount=10&category=Comida&description=" + strings.Repeat("x", 1<<20)
	rr := do(srv, http.MethodPost, "/expenses", formType, body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
	if state.Ledger.Len() != 0 {
		t.Errorf("ledger has %d records, want 0", state.Ledger.Len())
	}
}

func TestDeleteQuotedIncomeFromOverview(t *testing.T) {
	srv, state := newTestServer(t, nil)
	label := `Bono "extra"`

	rr := do(srv, http.MethodPost, "/income", formType, url.Values{"label": {label}, "amount": {"50"}}.Encode())
	if rr.Code != http.StatusOK {
		t.Fatalf("set status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/ui/overview", "", "")
	if want := `name="label" value="Bono &#34;extra&#34;"`; !strings.Contains(rr.Body.String(), want) {
		t.Fatalf("overview does not carry the label as a form field: %s", rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/income/delete", formType, url.Values{"label": {label}}.Encode())
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !state.Income.Total().Equal(decimal.NewFromInt(2050)) {
		t.Errorf("income total=%s, want 2050", state.Income.Total())
	}
}

func TestCategoryHandlers(t *testing.T) {
	srv, state := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"new category", "name=Hogar", http.StatusCreated},
		{"duplicate", "name=Hogar", http.StatusOK},
		{"subcategory", "name=Alquiler&parent=Hogar", http.StatusCreated},
		{"unknown parent", "name=Pasajes&parent=Viajes", http.StatusUnprocessableEntity},
		{"empty name", "name=", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/categories", formType, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d (body %q)", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}

	if !state.Categories.Has("Hogar") {
		t.Fatal("Hogar not added")
	}
	if subs := state.Categories.Subcategories("Hogar"); len(subs) != 1 || subs[0] != "Alquiler" {
		t.Errorf("Hogar subcategories=%v", subs)
	}

	rr := do(srv, http.MethodGet, "/api/categories", "", "")
	var cats []core.CategoryEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 8 || cats[7].Name != "Hogar" {
		t.Errorf("unexpected categories %+v", cats)
	}

	if rr := do(srv, http.MethodPost, "/expenses", formType, "amount=700&category=Hogar&subcategory=Alquiler"); rr.Code != http.StatusOK {
		t.Errorf("expense in new category status=%d", rr.Code)
	}
}

func TestExports(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if rr := do(srv, http.MethodPost, "/expenses", formType, "amount=12.5&currency=USD&category=TV&subcategory=Netflix&description=plan"); rr.Code != http.StatusOK {
		t.Fatalf("create status=%d", rr.Code)
	}

	tests := []struct {
		path        string
		filename    string
		contentType string
		prefix      string
		contains    []string
	}{
		{"/export/gastos.json", "gastos.json", "application/json", "[", []string{`"moneda": "USD"`, `"fecha": "14/03/2025"`, `"cat": "TV"`}},
		{"/export/ahorrosmart.json", "ahorrosmart.json", "application/json", "{", []string{`"gastos"`, `"ingresos"`, `"sueldo": 1800`, `"tasas"`}},
		{"/export/gastos.csv", "gastos.csv", "text/csv", "fecha,monto,moneda,monto_eur,cat,sub,desc", []string{"14/03/2025,12.5,USD,11.57,TV,Netflix,plan"}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			rr := do(srv, http.MethodGet, tt.path, "", "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, tt.filename) {
				t.Errorf("Content-Disposition=%q", got)
			}
			if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, tt.contentType) {
				t.Errorf("Content-Type=%q", got)
			}
			if got := rr.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control=%q", got)
			}
			body := rr.Body.String()
			if !strings.HasPrefix(body, tt.prefix) {
				t.Errorf("body does not start with %q: %q", tt.prefix, body)
			}
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q:\n%s", want, body)
				}
			}
		})
	}
}

func TestPostRateLimit(t *testing.T) {
	clock := &core.MockClock{FixedNow: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
	state := session.New(session.Options{Clock: clock, Goal: budget.DefaultSavingsGoal})
	srv := NewServer(Options{State: state, RateLimit: ratelimit.Config{RequestsPerMinute: 1, Burst: 1}})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	if rr := do(srv, http.MethodPost, "/expenses", formType, "amount=1&category=Comida"); rr.Code != http.StatusOK {
		t.Fatalf("first POST status=%d", rr.Code)
	}
	rr := do(srv, http.MethodPost, "/expenses", formType, "amount=1&category=Comida")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rr := do(srv, http.MethodGet, "/api/expenses", "", ""); rr.Code != http.StatusOK {
		t.Errorf("GET after limit status=%d", rr.Code)
	}
}
