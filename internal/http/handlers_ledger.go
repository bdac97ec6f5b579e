package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/export"
	"caixa/internal/ledger"
	"caixa/internal/store"
)

// historyRow is a history entry decorated for rendering.
type historyRow struct {
	ID        string
	Kind      string
	KindLabel string
	Date      string
	Amount    string
	Reason    string
	CanDelete bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	summary, err := s.loadSummary(r.Context(), ledger.Filter{Period: ledger.PeriodAll, Type: ledger.TypeAll})
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary load error", "error", err)
		http.Error(w, "erro carregando resumo", http.StatusInternalServerError)
		return
	}
	entries, err := ledger.LoadHistory(r.Context(), s.store)
	if err != nil {
		slog.ErrorContext(r.Context(), "History load error", "error", err)
		http.Error(w, "erro carregando histórico", http.StatusInternalServerError)
		return
	}

	data := struct {
		Today            string
		Total            string
		TotalWithdrawals string
		FinalBalance     string
		History          []historyRow
	}{
		Today:            time.Now().Format(core.DateLayout),
		Total:            formatReais(summary.Total.Cents),
		TotalWithdrawals: formatReais(summary.TotalWithdrawals.Cents),
		FinalBalance:     formatReais(summary.FinalBalance.Cents),
		History:          s.historyRows(entries),
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) historyRows(entries []core.HistoryEntry) []historyRow {
	rows := make([]historyRow, 0, len(entries))
	for _, entry := range entries {
		label := "Entrada"
		if entry.Kind == core.Withdrawal {
			label = "Retirada"
		}
		rows = append(rows, historyRow{
			ID:        entry.ID,
			Kind:      string(entry.Kind),
			KindLabel: label,
			Date:      entry.Date.Format(core.DateLayout),
			Amount:    formatReais(entry.Amount.Cents),
			Reason:    entry.Reason,
			CanDelete: s.ledger.CanDelete(entry),
		})
	}
	return rows
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Valor inválido</div>`)
		return
	}

	date := time.Now()
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			date = d
		} else {
			writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Data inválida</div>`)
			return
		}
	}

	entry, err := s.ledger.RecordIncome(r.Context(), date, core.Money{Cents: cents})
	if err != nil {
		s.writeMutationError(w, r, err, "record income")
		return
	}
	s.structured.LogEntryRecorded(r.Context(), entry.ID, string(entry.Kind), entry.Amount.Cents, entry.Reason)

	writeFragment(w, http.StatusOK, `<div class="success">Entrada registrada: `+
		template.HTMLEscapeString(formatReais(entry.Amount.Cents))+
		` na semana de `+template.HTMLEscapeString(core.WeekKey(entry.Date).Format(core.DateLayout))+`</div>`)
}

func (s *Server) handleRecordWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Valor inválido</div>`)
		return
	}
	reason := sanitizeInput(r.Form.Get("reason"))

	entry, err := s.ledger.RecordWithdrawal(r.Context(), core.Money{Cents: cents}, reason, confirmed(r))
	if err != nil {
		s.writeMutationError(w, r, err, "record withdrawal")
		return
	}
	s.structured.LogEntryRecorded(r.Context(), entry.ID, string(entry.Kind), entry.Amount.Cents, entry.Reason)

	writeFragment(w, http.StatusOK, `<div class="success">Retirada registrada: `+
		template.HTMLEscapeString(formatReais(entry.Amount.Cents))+
		` - `+template.HTMLEscapeString(entry.Reason)+`</div>`)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Lançamento não informado</div>`)
		return
	}

	doc, err := s.store.ReadDocument(r.Context(), store.History, id)
	if errors.Is(err, store.ErrNotFound) {
		writeFragment(w, http.StatusNotFound, `<div class="error">Lançamento não encontrado</div>`)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "History read error", "error", err, "entry_id", id)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro ao carregar lançamento</div>`)
		return
	}
	entry, err := store.DecodeHistoryEntry(id, doc)
	if err != nil {
		slog.ErrorContext(r.Context(), "History decode error", "error", err, "entry_id", id)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro ao carregar lançamento</div>`)
		return
	}

	if err := s.ledger.DeleteHistoryEntry(r.Context(), entry, confirmed(r)); err != nil {
		s.writeMutationError(w, r, err, "delete entry")
		return
	}

	writeFragment(w, http.StatusOK, `<div class="success">Lançamento excluído</div>`)
}

// writeMutationError maps service errors onto user-facing fragments.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, core.ErrConfirmationDeclined):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Operação não confirmada</div>`)
	case errors.Is(err, ledger.ErrDeleteWindowExpired):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">O prazo para excluir este lançamento expirou</div>`)
	case ledger.IsValidation(err):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Dados inválidos: `+template.HTMLEscapeString(err.Error())+`</div>`)
	default:
		slog.ErrorContext(r.Context(), "Ledger mutation error", "error", err, "operation", op)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro no salvamento</div>`)
	}
}

type summaryBucket struct {
	Key    string
	Amount string
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	f := parseFilter(r)
	summary, err := s.loadSummary(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary load error", "error", err)
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Erro carregando relatório</div></section>`))
		return
	}
	movements, err := ledger.LoadMovements(r.Context(), s.store)
	if err != nil {
		slog.ErrorContext(r.Context(), "Movements load error", "error", err)
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Erro carregando relatório</div></section>`))
		return
	}

	type item struct {
		KindLabel string
		Date      string
		Amount    string
		Reason    string
	}
	data := struct {
		Total            string
		TotalWithdrawals string
		FinalBalance     string
		Negative         bool
		ByWeek           []summaryBucket
		ByMonth          []summaryBucket
		Items            []item
		Months           []string
		Years            []string
	}{
		Total:            formatReais(summary.Total.Cents),
		TotalWithdrawals: formatReais(summary.TotalWithdrawals.Cents),
		FinalBalance:     formatReais(summary.FinalBalance.Cents),
		Negative:         summary.FinalBalance.Cents < 0,
		ByWeek:           buckets(summary.ByWeek),
		ByMonth:          buckets(summary.ByMonth),
		Months:           ledger.MonthOptions(movements),
		Years:            ledger.YearOptions(movements),
	}
	for _, mv := range summary.Items {
		label := "Entrada"
		if mv.Kind == core.Withdrawal {
			label = "Retirada"
		}
		data.Items = append(data.Items, item{
			KindLabel: label,
			Date:      mv.Date.Format(core.DateLayout),
			Amount:    formatReais(mv.Amount.Cents),
			Reason:    mv.Reason,
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Saldo: ` + data.FinalBalance + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "summary.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "summary.html")
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Erro renderizando relatório</div></section>`))
	}
}

func buckets(m map[string]core.Money) []summaryBucket {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// ascending chronological order; keys are zero-padded dates
	sort.Strings(keys)
	out := make([]summaryBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, summaryBucket{Key: k, Amount: formatReais(m[k].Cents)})
	}
	return out
}

func (s *Server) handleExportLedgerCSV(w http.ResponseWriter, r *http.Request) {
	summary, err := s.loadSummary(r.Context(), parseFilter(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary load error", "error", err)
		http.Error(w, "erro carregando relatório", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="financeiro.csv"`)
	if err := export.LedgerCSV(w, summary.Items); err != nil {
		slog.ErrorContext(r.Context(), "CSV export error", "error", err)
	}
}

func (s *Server) handleExportLedgerTXT(w http.ResponseWriter, r *http.Request) {
	summary, err := s.loadSummary(r.Context(), parseFilter(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary load error", "error", err)
		http.Error(w, "erro carregando relatório", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="relatorio-financeiro.txt"`)
	if err := export.LedgerTXT(w, summary); err != nil {
		slog.ErrorContext(r.Context(), "TXT export error", "error", err)
	}
}
