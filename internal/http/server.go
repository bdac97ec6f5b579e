// Package http serves the cash-box UI as HTML pages and fragments.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"caixa/internal/attendance"
	"caixa/internal/cache"
	"caixa/internal/ledger"
	applog "caixa/internal/log"
	"caixa/internal/middleware/ratelimit"
	"caixa/internal/middleware/security"
	"caixa/internal/middleware/trace"
	"caixa/internal/reports"
	"caixa/internal/roster"
	"caixa/internal/schedule"
	"caixa/internal/services"
	"caixa/internal/store"
	appweb "caixa/web"
)

type Server struct {
	http.Server
	templates *template.Template

	store      store.Store
	ledger     *services.LedgerService
	roster     *roster.Service
	attendance *attendance.Service
	reports    *reports.Service
	schedule   *schedule.Service

	detector *security.Detector
	headers  *security.HeadersMiddleware
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	logger     *applog.Logger
	structured *applog.StructuredLogger

	// Report summaries keyed by their filter string. Cleared on every
	// ledger mutation and on store change notifications.
	summaryCache *cache.LRUCache[ledger.Summary]
	cacheManager *cache.Manager

	unsubscribe  []func()
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, st store.Store, ledgerSvc *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:      st,
		ledger:     ledgerSvc,
		roster:     roster.NewService(st),
		attendance: attendance.NewService(st),
		schedule:   schedule.NewService(st),

		detector: security.NewDetector(),
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),

		summaryCache: cache.NewLRUCache[ledger.Summary](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.reports = reports.NewService(s.attendance)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	s.structured = applog.NewStructuredLogger(s.logger)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Any write to the ledger collections makes cached summaries stale.
	for _, collection := range []string{store.Balances, store.History} {
		unsub := st.Subscribe(collection, func() { s.summaryCache.Clear() })
		s.unsubscribe = append(s.unsubscribe, unsub)
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/", s.protect(s.handleIndex))
	mux.HandleFunc("/ledger/income", s.protect(s.handleRecordIncome))
	mux.HandleFunc("/ledger/withdrawal", s.protect(s.handleRecordWithdrawal))
	mux.HandleFunc("/ledger/delete", s.protect(s.handleDeleteEntry))
	mux.HandleFunc("/ui/summary", s.protect(s.handleSummary))
	mux.HandleFunc("/export/financeiro.csv", s.protect(s.handleExportLedgerCSV))
	mux.HandleFunc("/export/relatorio-financeiro.txt", s.protect(s.handleExportLedgerTXT))

	mux.HandleFunc("/students", s.protect(s.handleStudents))
	mux.HandleFunc("/students/delete", s.protect(s.handleDeleteStudent))

	mux.HandleFunc("/attendance", s.protect(s.handleAttendance))
	mux.HandleFunc("/attendance/toggle", s.protect(s.handleToggleAttendance))
	mux.HandleFunc("/attendance/mark-all", s.protect(s.handleMarkAll))

	mux.HandleFunc("/reports/frequency", s.protect(s.handleFrequency))
	mux.HandleFunc("/export/relatorio-frequencia.csv", s.protect(s.handleExportFrequencyCSV))

	mux.HandleFunc("/schedule", s.protect(s.handleSchedule))
	mux.HandleFunc("/schedule/delete", s.protect(s.handleDeleteSchedule))
	mux.HandleFunc("/export/escala-professores.csv", s.protect(s.handleExportScheduleCSV))

	return s
}

// protect chains security headers, suspicious-request rejection, tracing
// and POST rate limiting around a handler.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	limited := func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request rejected",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if r.Method == http.MethodPost && !s.limiter.Allow(s.detector.ExtractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
	requestID := func(r *http.Request) string { return trace.GetRequestID(r.Context()) }
	inner := applog.RequestIDMiddleware(requestID)(http.HandlerFunc(limited))
	wrapped := s.headers.Middleware(applog.Middleware(s.logger)(s.tracer.Middleware(inner)))
	return wrapped.ServeHTTP
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.List(r.Context(), store.Balances); err != nil {
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		for _, unsub := range s.unsubscribe {
			unsub()
		}
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
