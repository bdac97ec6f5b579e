package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"caixa/internal/core"
	"caixa/internal/ledger"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatReais renders cents as the UI money string, e.g. "R$ 150.00".
func formatReais(cents int64) string {
	if cents < 0 {
		return "-R$ " + core.FormatAmount(-cents)
	}
	return "R$ " + core.FormatAmount(cents)
}

// parseFilter builds the aggregation filter from request parameters.
// Malformed dates are ignored rather than rejected; the report simply
// falls back to the unfiltered view for that bound.
func parseFilter(r *http.Request) ledger.Filter {
	q := r.URL.Query()
	f := ledger.Filter{
		Period:      strings.TrimSpace(q.Get("period")),
		PeriodValue: strings.TrimSpace(q.Get("period_value")),
		Type:        strings.TrimSpace(q.Get("type")),
		Search:      sanitizeInput(q.Get("search")),
	}
	if f.Period == "" {
		f.Period = ledger.PeriodAll
	}
	if f.Type == "" {
		f.Type = ledger.TypeAll
	}
	if v := strings.TrimSpace(q.Get("date_start")); v != "" {
		if t, err := core.ParseDate(v); err == nil {
			f.DateStart = t
		}
	}
	if v := strings.TrimSpace(q.Get("date_end")); v != "" {
		if t, err := core.ParseDate(v); err == nil {
			f.DateEnd = t
		}
	}
	return f
}

// filterKey is the cache key of a filter. Field order is fixed so equal
// filters always collide.
func filterKey(f ledger.Filter) string {
	var b strings.Builder
	b.WriteString(f.Period)
	b.WriteByte('|')
	b.WriteString(f.PeriodValue)
	b.WriteByte('|')
	if !f.DateStart.IsZero() {
		b.WriteString(f.DateStart.Format(core.DateLayout))
	}
	b.WriteByte('|')
	if !f.DateEnd.IsZero() {
		b.WriteString(f.DateEnd.Format(core.DateLayout))
	}
	b.WriteByte('|')
	b.WriteString(f.Type)
	b.WriteByte('|')
	b.WriteString(strings.ToLower(f.Search))
	return b.String()
}

// loadSummary aggregates the ledger under the filter, going through the
// LRU cache.
func (s *Server) loadSummary(ctx context.Context, f ledger.Filter) (ledger.Summary, error) {
	key := filterKey(f)
	if summary, found := s.summaryCache.Get(key); found {
		slog.DebugContext(ctx, "Summary cache hit", "key", key)
		return summary, nil
	}

	movements, err := ledger.LoadMovements(ctx, s.store)
	if err != nil {
		return ledger.Summary{}, err
	}
	summary := ledger.Aggregate(movements, f)
	s.summaryCache.Set(key, summary)
	return summary, nil
}

func confirmed(r *http.Request) bool {
	return r.Form.Get("confirm") == "true"
}

func writeFragment(w http.ResponseWriter, status int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}
