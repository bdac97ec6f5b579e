package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"caixa/internal/core"
	"caixa/internal/export"
	"caixa/internal/schedule"
)

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSchedule(w, r)
	case http.MethodPost:
		s.handleUpsertSchedule(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search, sortBy, desc := scheduleListParams(r)

	slots, err := s.schedule.List(ctx, search, sortBy, desc)
	if err != nil {
		slog.ErrorContext(ctx, "Schedule list error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro carregando a escala</div>`)
		return
	}

	type slotRow struct {
		Slot core.ScheduleSlot
		Date string
	}
	rows := make([]slotRow, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, slotRow{Slot: slot, Date: slot.Date.Format(core.DateLayout)})
	}

	data := struct {
		Rows   []slotRow
		Search string
		SortBy string
		Desc   bool
	}{Rows: rows, Search: search, SortBy: sortBy, Desc: desc}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		writeFragment(w, http.StatusOK, `<div class="placeholder">Escala de professores</div>`)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "schedule.html", data); err != nil {
		slog.ErrorContext(ctx, "Template execution error", "error", err, "template", "schedule.html")
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro renderizando a escala</div>`)
	}
}

func (s *Server) handleUpsertSchedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	ctx := r.Context()
	slot := core.ScheduleSlot{
		ID:      strings.TrimSpace(r.Form.Get("id")),
		Teacher: sanitizeInput(r.Form.Get("teacher")),
		Lesson:  sanitizeInput(r.Form.Get("lesson")),
		Quarter: sanitizeInput(r.Form.Get("quarter")),
	}
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		t, err := core.ParseDate(v)
		if err != nil {
			writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Data inválida</div>`)
			return
		}
		slot.Date = t
	}

	saved, err := s.schedule.Upsert(ctx, slot)
	if err != nil {
		s.writeScheduleError(w, ctx, err)
		return
	}

	verb := "Escala criada"
	if slot.ID != "" {
		verb = "Escala atualizada"
	}
	writeFragment(w, http.StatusOK, `<div class="success">`+verb+`: `+
		template.HTMLEscapeString(saved.Teacher)+` em `+saved.Date.Format(core.DateLayout)+`</div>`)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
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
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Escala não informada</div>`)
		return
	}

	if err := s.schedule.Delete(r.Context(), id, confirmed(r)); err != nil {
		if errors.Is(err, core.ErrConfirmationDeclined) {
			writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Exclusão não confirmada</div>`)
			return
		}
		slog.ErrorContext(r.Context(), "Schedule delete error", "error", err, "slot_id", id)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro na exclusão</div>`)
		return
	}

	writeFragment(w, http.StatusOK, `<div class="success">Escala excluída</div>`)
}

func (s *Server) handleExportScheduleCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search, sortBy, desc := scheduleListParams(r)

	slots, err := s.schedule.List(ctx, search, sortBy, desc)
	if err != nil {
		slog.ErrorContext(ctx, "Schedule export error", "error", err)
		http.Error(w, "erro gerando exportação", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="escala-professores.csv"`)
	if err := export.ScheduleCSV(w, slots); err != nil {
		slog.ErrorContext(ctx, "Schedule export write error", "error", err)
	}
}

func (s *Server) writeScheduleError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrDateTaken):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Já existe um professor escalado para esta data</div>`)
	case errors.Is(err, core.ErrEmptyTeacher):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Informe o nome do professor</div>`)
	case errors.Is(err, core.ErrInvalidDate):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Data inválida</div>`)
	case errors.Is(err, core.ErrInvalidLesson):
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Lição inválida</div>`)
	default:
		slog.ErrorContext(ctx, "Schedule save error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro salvando a escala</div>`)
	}
}

func scheduleListParams(r *http.Request) (search, sortBy string, desc bool) {
	q := r.URL.Query()
	search = sanitizeInput(q.Get("search"))
	sortBy = strings.TrimSpace(q.Get("sort"))
	if sortBy == "" {
		sortBy = schedule.SortByDate
	}
	desc = q.Get("desc") == "true"
	return search, sortBy, desc
}
