package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
	applog "ahorrosmart/internal/log"
	"ahorrosmart/internal/rates"
	"ahorrosmart/internal/session"
)

// expenseView is the JSON shape of a ledger record.
type expenseView struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    core.Currency   `json:"currency"`
	AmountEUR   decimal.Decimal `json:"amount_eur"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount,
		Currency:    e.Currency,
		AmountEUR:   e.AmountEUR,
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

type incomeView struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// dashboardView adds the records and income entries the snapshot keeps out
// of its own JSON encoding.
type dashboardView struct {
	session.Dashboard
	IncomeSources []incomeView  `json:"income_sources"`
	Expenses      []expenseView `json:"expenses"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	s.render(w, r, "overview.html", s.state.Dashboard())
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	d := s.state.Dashboard()
	view := dashboardView{
		Dashboard:     d,
		IncomeSources: make([]incomeView, 0, len(d.IncomeItems)),
		Expenses:      make([]expenseView, 0, len(d.Records)),
	}
	for _, src := range d.IncomeItems {
		view.IncomeSources = append(view.IncomeSources, incomeView{Label: src.Label, Amount: src.Amount})
	}
	for _, e := range d.Records {
		view.Expenses = append(view.Expenses, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	records := s.state.Ledger.Records()
	out := make([]expenseView, 0, len(records))
	for _, e := range records {
		out = append(out, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, s.state.Categories.Snapshot())
}

// ratesView is the answer of /api/rates and of a JSON refresh request.
type ratesView struct {
	Source      string              `json:"source"`
	Rates       rates.Table         `json:"rates"`
	Quotes      []rates.Quote       `json:"quotes"`
	LastRefresh session.RefreshInfo `json:"last_refresh"`
}

func (s *Server) currentRates() ratesView {
	table := s.state.Rates.Snapshot()
	return ratesView{
		Source:      s.state.Rates.SourceName(),
		Rates:       table,
		Quotes:      rates.NewConverter(table).Quotes(),
		LastRefresh: session.NewRefreshInfo(s.state.Rates.LastResult()),
	}
}

func (s *Server) handleAPIRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, s.currentRates())
}

// handleRefreshRates fetches a new table. Failures keep the previous table
// and are reported as 502 (network) or 422 (malformed upstream data).
func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	res := s.refresher.Refresh(r.Context())
	s.metrics.refreshTotal.Add(1)
	s.events.LogRateRefresh(r.Context(), string(res.Status), s.state.Rates.SourceName(), res.Err)

	status := http.StatusOK
	switch res.Status {
	case rates.StatusOK:
	case rates.StatusParseError:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusBadGateway
	}
	if !res.OK() {
		s.metrics.refreshFailures.Add(1)
	}

	if wantsJSON(r) {
		view := s.currentRates()
		if !res.OK() {
			writeJSON(w, status, struct {
				ratesView
				Error string `json:"error"`
			}{view, res.Message()})
			return
		}
		writeJSON(w, status, view)
		return
	}

	b := NewHTMXResponse().Status(status).TriggerRatesRefreshed(string(res.Status))
	if res.OK() {
		b.TriggerSuccessNotification(res.Message())
	} else {
		b.TriggerWarningNotification(res.Message())
	}
	b.BodyHTML(`<div class="` + refreshClass(res) + `">` + res.Message() + `</div>`).Write(w)
}

func refreshClass(res rates.Result) string {
	if res.OK() {
		return "success"
	}
	return "error"
}

type convertView struct {
	Amount    decimal.Decimal `json:"amount"`
	From      core.Currency   `json:"from"`
	To        core.Currency   `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Result    decimal.Decimal `json:"result"`
	Formatted string          `json:"formatted"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	params, err := ParseConvertParams(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	conv := s.state.Rates.Converter()
	result, err := conv.Convert(params.Amount, params.From, params.To)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Conversion failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpConvert,
			applog.FieldComponent, applog.ComponentRates)
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	rate, err := conv.CrossRate(params.From, params.To)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	places := int32(2)
	if result.LessThan(decimal.NewFromInt(1)) {
		places = 4
	}
	writeJSON(w, http.StatusOK, convertView{
		Amount:    params.Amount,
		From:      params.From,
		To:        params.To,
		Rate:      rate,
		Result:    result,
		Formatted: core.FormatAmount(result, places, "") + " " + params.To.String(),
	})
}
