package http

import (
	"fmt"
	"html/template"
	"net/http"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/ledger"
	applog "ahorrosmart/internal/log"
)

// handleCreateExpense records an expense from a form post or a JSON body.
// Malformed bodies get 400, invalid values 422.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	logger := applog.FromContext(r.Context())
	asJSON := wantsJSON(r)

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(r.Context(), "Parse expense body error",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpParse,
			applog.FieldComponent, applog.ComponentExpense)
		s.fail(w, asJSON, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}
	asJSON = asJSON || parser.IsJSON()

	amount, err := parser.Amount("amount")
	if err != nil {
		s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	currency, err := parser.Currency("currency")
	if err != nil {
		s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	in := ledger.NewExpense{
		Amount:      amount,
		Currency:    currency,
		Category:    parser.Get("category"),
		Subcategory: parser.Get("subcategory"),
		Description: parser.Get("description"),
	}
	if in.Category != "" && !s.state.Categories.Has(in.Category) {
		s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(core.ErrUnknownCategory))
		return
	}

	e, err := s.expenses.Record(r.Context(), in)
	if err != nil {
		if isValidationError(err) {
			s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(err))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to record expense",
			applog.FieldError, err,
			applog.FieldCurrency, currency,
			applog.FieldCategory, in.Category,
			applog.FieldOperation, applog.OpCreate,
			applog.FieldComponent, applog.ComponentExpense)
		s.fail(w, asJSON, http.StatusInternalServerError, "Error al registrar el gasto")
		return
	}

	s.metrics.expensesTotal.Add(1)
	s.events.LogExpenseCreated(r.Context(), e.ID, e.Amount, e.Currency.String(), e.AmountEUR, e.Category, e.Subcategory)

	if asJSON {
		writeJSON(w, http.StatusCreated, newExpenseView(e))
		return
	}

	msg := fmt.Sprintf("Gasto registrado: %s (%s) en %s",
		core.FormatAmount(e.Amount, 2, "")+" "+e.Currency.String(),
		core.FormatEuros(e.AmountEUR),
		e.Category)
	NewHTMXResponse().
		TriggerExpenseCreated(e.ID).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

// fail answers with a JSON error or an HTMX error fragment.
func (s *Server) fail(w http.ResponseWriter, asJSON bool, status int, msg string) {
	if asJSON {
		writeJSONError(w, status, msg)
		return
	}
	ErrorResponse(status, msg).Write(w)
}
