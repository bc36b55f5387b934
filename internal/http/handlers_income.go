package http

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
	applog "ahorrosmart/internal/log"
)

// handleSetIncome creates or replaces an income source (label, amount).
func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	asJSON := wantsJSON(r)
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.fail(w, asJSON, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}
	asJSON = asJSON || parser.IsJSON()

	amount, err := parseIncomeAmount(parser.Get("amount"))
	if err != nil {
		s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	src, err := s.settings.SetIncome(r.Context(), parser.Get("label"), amount)
	if err != nil {
		s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Income source updated",
		"label", src.Label,
		applog.FieldAmount, src.Amount.String(),
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldComponent, applog.ComponentIncome)

	if asJSON {
		writeJSON(w, http.StatusOK, incomeView{Label: src.Label, Amount: src.Amount})
		return
	}
	msg := "Ingreso " + src.Label + ": " + core.FormatEuros(src.Amount)
	NewHTMXResponse().
		TriggerIncomeUpdated(src.Label).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

// handleDeleteIncome removes an income source by label.
func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	asJSON := wantsJSON(r)
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.fail(w, asJSON, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}
	asJSON = asJSON || parser.IsJSON()

	label := parser.Get("label")
	if label == "" {
		label = sanitizeInput(r.URL.Query().Get("label"))
	}
	if label == "" {
		s.fail(w, asJSON, http.StatusBadRequest, "Falta el nombre del ingreso")
		return
	}
	if !s.settings.RemoveIncome(r.Context(), label) {
		s.fail(w, asJSON, http.StatusNotFound, "Ingreso no encontrado")
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Income source removed",
		"label", label,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldComponent, applog.ComponentIncome)

	if asJSON {
		writeJSON(w, http.StatusOK, map[string]string{"removed": label})
		return
	}
	NewHTMXResponse().
		TriggerIncomeUpdated(label).
		TriggerSuccessNotification("Ingreso eliminado").
		Write(w)
}

// handleAddCategory adds a category, or a subcategory when parent is set.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	asJSON := wantsJSON(r)
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.fail(w, asJSON, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}
	asJSON = asJSON || parser.IsJSON()

	name, parent := parser.Get("name"), parser.Get("parent")
	changed, err := s.settings.AddCategory(r.Context(), name, parent)
	if err != nil {
		s.fail(w, asJSON, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	status := http.StatusCreated
	msg := "Categoría agregada: " + name
	if !changed {
		status = http.StatusOK
		msg = "La categoría ya existe: " + name
	}
	if parent != "" {
		msg += " (" + parent + ")"
	}

	if asJSON {
		writeJSON(w, status, map[string]any{"name": name, "parent": parent, "created": changed})
		return
	}
	b := NewHTMXResponse().Status(status).TriggerFormReset()
	if changed {
		b.TriggerCategoryAdded(name).TriggerSuccessNotification(msg)
	} else {
		b.TriggerNotification(NotificationInfo, msg, 3000)
	}
	b.BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).Write(w)
}

// parseIncomeAmount accepts zero, unlike expense amounts.
func parseIncomeAmount(s string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(s)
	if err == nil {
		return d, nil
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if zero, zerr := decimal.NewFromString(s); zerr == nil && zero.IsZero() && !strings.HasPrefix(s, "-") {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, core.ErrNegativeIncome
	}
	return decimal.Zero, err
}
