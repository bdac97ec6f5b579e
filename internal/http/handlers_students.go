package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"caixa/internal/core"
)

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderStudents(w, r)
	case http.MethodPost:
		s.handleAddStudent(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.roster.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Student list error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro carregando alunos</div>`)
		return
	}

	data := struct {
		Students []core.Student
	}{Students: students}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		writeFragment(w, http.StatusOK, `<div class="placeholder">Alunos cadastrados: `+strconv.Itoa(len(students))+`</div>`)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "students.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "students.html")
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro renderizando alunos</div>`)
	}
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFragment(w, http.StatusBadRequest, `<div class="error">Formato de requisição inválido</div>`)
		return
	}

	student, err := s.roster.Add(r.Context(), sanitizeInput(r.Form.Get("name")))
	if errors.Is(err, core.ErrEmptyName) {
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Informe o nome do aluno</div>`)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Student add error", "error", err)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro no cadastro</div>`)
		return
	}

	writeFragment(w, http.StatusOK, `<div class="success">Aluno cadastrado: `+
		template.HTMLEscapeString(student.Name)+`</div>`)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
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
		writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Aluno não informado</div>`)
		return
	}

	if err := s.roster.Remove(r.Context(), id, confirmed(r)); err != nil {
		if errors.Is(err, core.ErrConfirmationDeclined) {
			writeFragment(w, http.StatusUnprocessableEntity, `<div class="error">Exclusão não confirmada</div>`)
			return
		}
		slog.ErrorContext(r.Context(), "Student remove error", "error", err, "student_id", id)
		writeFragment(w, http.StatusInternalServerError, `<div class="error">Erro na exclusão</div>`)
		return
	}

	writeFragment(w, http.StatusOK, `<div class="success">Aluno removido</div>`)
}
