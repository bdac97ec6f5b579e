package http

import (
	"log/slog"
	"net/http"
	"strings"

	"caixa/internal/export"
	"caixa/internal/reports"
)

func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	f := frequencyFilter(r)
	rows, err := s.reports.Frequency(ctx, f)
	if err != nil {
		slog.ErrorContext(ctx, "Frequency report error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro gerando relatório de frequência</div>`)
		return
	}

	data := struct {
		Rows  []reports.StudentFrequency
		Name  string
		Month string
	}{Rows: rows, Name: f.Name, Month: f.Month}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		writeFragment(w, http.StatusOK, `<div class="placeholder">Relatório de frequência</div>`)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "frequency.html", data); err != nil {
		slog.ErrorContext(ctx, "Template execution error", "error", err, "template", "frequency.html")
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro renderizando relatório</div>`)
	}
}

func (s *Server) handleExportFrequencyCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := s.reports.Frequency(ctx, frequencyFilter(r))
	if err != nil {
		slog.ErrorContext(ctx, "Frequency export error", "error", err)
		http.Error(w, "erro gerando exportação", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="relatorio-frequencia.csv"`)
	if err := export.FrequencyCSV(w, rows); err != nil {
		slog.ErrorContext(ctx, "Frequency export write error", "error", err)
	}
}

func frequencyFilter(r *http.Request) reports.Filter {
	q := r.URL.Query()
	return reports.Filter{
		Name:  sanitizeInput(q.Get("name")),
		Month: strings.TrimSpace(q.Get("month")),
	}
}
