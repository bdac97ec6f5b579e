package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"caixa/internal/ledger"
	"caixa/internal/services"
	"caixa/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })

	svc := services.NewLedgerService(ledger.NewMutator(st), nil)
	srv := NewServer(":0", st, svc)
	t.Cleanup(func() {
		for _, unsub := range srv.unsubscribe {
			unsub()
		}
		srv.cacheManager.Stop()
		srv.limiter.Stop()
	})
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	if rec := get(srv, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := get(srv, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRecordIncomeFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(srv, "/ledger/income", url.Values{
		"amount": {"150.00"},
		"date":   {"2025-06-11"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("income status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Entrada registrada") {
		t.Errorf("income body = %q, want success fragment", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "2025-06-08") {
		t.Errorf("income body = %q, want week key of the Sunday", rec.Body.String())
	}

	rec = get(srv, "/ui/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "R$ 150.00") {
		t.Errorf("summary body missing balance, got %q", rec.Body.String())
	}
}

func TestRecordIncomeRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"bad amount", url.Values{"amount": {"abc"}}, "Valor inválido"},
		{"zero amount", url.Values{"amount": {"0"}}, "Valor inválido"},
		{"bad date", url.Values{"amount": {"10.00"}, "date": {"11/06/2025"}}, "Data inválida"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(srv, "/ledger/income", tt.form)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestWithdrawalRequiresConfirmation(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"amount": {"20.00"}, "reason": {"material"}}
	rec := postForm(srv, "/ledger/withdrawal", form)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unconfirmed status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "Operação não confirmada") {
		t.Errorf("body = %q, want confirmation error", rec.Body.String())
	}

	form.Set("confirm", "true")
	rec = postForm(srv, "/ledger/withdrawal", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Retirada registrada") {
		t.Errorf("body = %q, want success fragment", rec.Body.String())
	}
}

func TestLedgerCSVExport(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/ledger/income", url.Values{"amount": {"75.50"}, "date": {"2025-06-11"}})

	rec := get(srv, "/export/financeiro.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "financeiro.csv") {
		t.Errorf("Content-Disposition = %q", got)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "\uFEFF") {
		t.Error("CSV export missing UTF-8 BOM")
	}
	if !strings.Contains(body, `"Tipo";"Data";"Valor";"Motivo"`) {
		t.Errorf("CSV export missing header, got %q", body)
	}
	if !strings.Contains(body, `"75.50"`) {
		t.Errorf("CSV export missing amount, got %q", body)
	}
}

func TestStudentsFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(srv, "/students", url.Values{"name": {"Ana"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Aluno cadastrado: Ana") {
		t.Errorf("body = %q, want registration fragment", rec.Body.String())
	}

	rec = postForm(srv, "/students", url.Values{"name": {"   "}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	rec = get(srv, "/students")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Ana") {
		t.Errorf("student list missing Ana")
	}
}

func TestAttendanceToggleFlow(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/students", url.Values{"name": {"Pedro"}})
	students, err := srv.roster.List(context.Background())
	if err != nil || len(students) != 1 {
		t.Fatalf("roster.List: %v students, err %v", len(students), err)
	}

	form := url.Values{
		"student_id": {students[0].ID},
		"date":       {"2025-06-11"},
		"present":    {"true"},
	}
	rec := postForm(srv, "/attendance/toggle", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Unmarking without confirmation is rejected.
	form.Set("present", "false")
	rec = postForm(srv, "/attendance/toggle", form)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unconfirmed unmark status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	rec = get(srv, "/attendance?date=2025-06-11")
	if rec.Code != http.StatusOK {
		t.Fatalf("attendance page status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2025-06-08") {
		t.Errorf("attendance page missing week key, got %q", rec.Body.String())
	}
}

func TestScheduleUniqueDate(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{
		"teacher": {"João"},
		"date":    {"2025-08-10"},
		"lesson":  {"7"},
		"quarter": {"2025-T3"},
	}
	rec := postForm(srv, "/schedule", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Escala criada") {
		t.Errorf("body = %q, want creation fragment", rec.Body.String())
	}

	form.Set("teacher", "Maria")
	rec = postForm(srv, "/schedule", form)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate date status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "Já existe um professor escalado") {
		t.Errorf("body = %q, want date conflict fragment", rec.Body.String())
	}
}

func TestFrequencyCSVExport(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/students", url.Values{"name": {"Ana"}})
	students, _ := srv.roster.List(context.Background())
	postForm(srv, "/attendance/toggle", url.Values{
		"student_id": {students[0].ID},
		"date":       {"2025-06-11"},
		"present":    {"true"},
	})

	rec := get(srv, "/export/relatorio-frequencia.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"Aluno";"Presenças";"Total";"Frequência %"`) {
		t.Errorf("frequency export missing header, got %q", body)
	}
	if !strings.Contains(body, `"Ana";"1";"1";"100.0"`) {
		t.Errorf("frequency export missing row, got %q", body)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := get(srv, "/.env")
	if rec.Code != http.StatusForbidden {
		t.Errorf("suspicious path status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRateLimitOnPost(t *testing.T) {
	srv := newTestServer(t)

	var limited bool
	for i := 0; i < 70; i++ {
		rec := postForm(srv, "/students", url.Values{"name": {"Aluno"}})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Errorf("Retry-After = %q, want 60", got)
			}
			break
		}
	}
	if !limited {
		t.Error("expected rate limit to trigger within 70 requests")
	}
}
