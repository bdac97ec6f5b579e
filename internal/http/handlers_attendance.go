package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

type attendanceRow struct {
	Student core.Student
	Present bool
	Marked  bool
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	week := weekFromQuery(r)

	weekOf, err := s.attendance.EnsureWeek(ctx, week)
	if err != nil {
		slog.ErrorContext(ctx, "Attendance week error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro abrindo a folha da semana</div>`)
		return
	}

	students, err := s.roster.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Student list error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro carregando alunos</div>`)
		return
	}
	records, err := s.attendance.WeekRecords(ctx, weekOf)
	if err != nil {
		slog.ErrorContext(ctx, "Attendance records error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro carregando presenças</div>`)
		return
	}

	rows := make([]attendanceRow, 0, len(students))
	present := 0
	for _, student := range students {
		rec, marked := records[student.ID]
		if marked && rec.Present {
			present++
		}
		rows = append(rows, attendanceRow{Student: student, Present: marked && rec.Present, Marked: marked})
	}

	data := struct {
		WeekOf  string
		Rows    []attendanceRow
		Present int
		Total   int
	}{
		WeekOf:  weekOf.Format(core.DateLayout),
		Rows:    rows,
		Present: present,
		Total:   len(students),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		writeFragment(w, http.StatusOK, `<div class="placeholder">Semana de `+data.WeekOf+`</div>`)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "attendance.html", data); err != nil {
		slog.ErrorContext(ctx, "Template execution error", "error", err, "template", "attendance.html")
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro renderizando presenças</div>`)
	}
}

func (s *Server) handleToggleAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	ctx := r.Context()
	studentID := strings.TrimSpace(r.Form.Get("student_id"))
	student, err := s.findStudent(r, studentID)
	if err != nil {
		slog.ErrorContext(ctx, "Student lookup error", "error", err, "student_id", studentID)
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Aluno não encontrado</div>`)
		return
	}

	week := weekFromForm(r)
	present := r.Form.Get("present") == "true"
	if err := s.attendance.Toggle(ctx, week, student, present, confirmed(r)); err != nil {
		if errors.Is(err, core.ErrConfirmationDeclined) {
			writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Desmarcação não confirmada</div>`)
			return
		}
		slog.ErrorContext(ctx, "Attendance toggle error", "error", err, "student_id", studentID)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro registrando presença</div>`)
		return
	}

	msg := `<div class="success">Presença registrada</div>`
	if !present {
		msg = `<div class="success">Presença desmarcada</div>`
	}
	writeFragment(w, http.StatusOK, msg)
}

func (s *Server) handleMarkAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	ctx := r.Context()
	students, err := s.roster.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Student list error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro carregando alunos</div>`)
		return
	}

	present := r.Form.Get("present") == "true"
	if err := s.attendance.MarkAll(ctx, weekFromForm(r), students, present); err != nil {
		slog.ErrorContext(ctx, "Attendance bulk mark error", "error", err, "present", present)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro na marcação em lote</div>`)
		return
	}

	msg := `<div class="success">Todos marcados como presentes</div>`
	if !present {
		msg = `<div class="success">Todos marcados como ausentes</div>`
	}
	writeFragment(w, http.StatusOK, msg)
}

func (s *Server) findStudent(r *http.Request, id string) (core.Student, error) {
	students, err := s.roster.List(r.Context())
	if err != nil {
		return core.Student{}, err
	}
	for _, student := range students {
		if student.ID == id {
			return student, nil
		}
	}
	return core.Student{}, store.ErrNotFound
}

func weekFromQuery(r *http.Request) time.Time {
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		if t, err := core.ParseDate(v); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func weekFromForm(r *http.Request) time.Time {
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		if t, err := core.ParseDate(v); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
