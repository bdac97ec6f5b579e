package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

// Filter period granularities and the type wildcard. Movement types reuse
// the core kind values directly.
const (
	PeriodAll   = "all"
	PeriodMonth = "month"
	PeriodYear  = "year"

	TypeAll = "all"
)

// Filter narrows the movement set before aggregation. Fields compose with
// AND semantics; zero values match everything.
type Filter struct {
	Period      string // PeriodAll, PeriodMonth or PeriodYear
	PeriodValue string // "YYYY-MM" for month, "YYYY" for year
	DateStart   time.Time
	DateEnd     time.Time // inclusive; range applies only when both bounds are set
	Type        string    // TypeAll or a core.MovementKind value
	Search      string    // case-insensitive substring on Reason
}

// Summary is the derived view of the ledger under a filter. It is a pure
// function of its inputs and safe to recompute from scratch at any time.
type Summary struct {
	Total            core.Money // income only
	TotalWithdrawals core.Money
	FinalBalance     core.Money // Total - TotalWithdrawals; may be negative
	ByWeek           map[string]core.Money // week-key ("YYYY-MM-DD") -> income sum
	ByMonth          map[string]core.Money // "YYYY-MM" -> income sum
	Items            []core.Movement       // filtered, sorted by date descending
}

// Aggregate filters movements (period, then date range, then type, then
// search), sorts them by date descending with the original relative order
// preserved on ties, and computes totals and weekly/monthly income buckets.
func Aggregate(movements []core.Movement, f Filter) Summary {
	filtered := make([]core.Movement, 0, len(movements))
	for _, mv := range movements {
		if matches(mv, f) {
			filtered = append(filtered, mv)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date.After(filtered[j].Date)
	})

	s := Summary{
		ByWeek:  make(map[string]core.Money),
		ByMonth: make(map[string]core.Money),
		Items:   filtered,
	}
	for _, mv := range filtered {
		switch mv.Kind {
		case core.Income:
			s.Total.Cents += mv.Amount.Cents
			week := core.WeekKey(mv.Date).Format(core.DateLayout)
			month := core.MonthKey(mv.Date)
			s.ByWeek[week] = core.Money{Cents: s.ByWeek[week].Cents + mv.Amount.Cents}
			s.ByMonth[month] = core.Money{Cents: s.ByMonth[month].Cents + mv.Amount.Cents}
		case core.Withdrawal:
			s.TotalWithdrawals.Cents += mv.Amount.Cents
		}
	}
	s.FinalBalance = core.Money{Cents: s.Total.Cents - s.TotalWithdrawals.Cents}
	return s
}

func matches(mv core.Movement, f Filter) bool {
	switch f.Period {
	case PeriodMonth:
		if f.PeriodValue != "" && core.MonthKey(mv.Date) != f.PeriodValue {
			return false
		}
	case PeriodYear:
		if f.PeriodValue != "" && strconv.Itoa(mv.Date.Year()) != f.PeriodValue {
			return false
		}
	}
	if !f.DateStart.IsZero() && !f.DateEnd.IsZero() {
		day := core.DayKey(mv.Date)
		if day.Before(core.DayKey(f.DateStart)) || day.After(core.DayKey(f.DateEnd)) {
			return false
		}
	}
	if f.Type != "" && f.Type != TypeAll && string(mv.Kind) != f.Type {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(mv.Reason), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

// MonthOptions returns the distinct "YYYY-MM" buckets present among income
// movements, sorted ascending, for the report filter dropdown.
func MonthOptions(movements []core.Movement) []string {
	return options(movements, core.MonthKey)
}

// YearOptions returns the distinct years present among income movements.
func YearOptions(movements []core.Movement) []string {
	return options(movements, func(t time.Time) string { return strconv.Itoa(t.Year()) })
}

func options(movements []core.Movement, bucket func(time.Time) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, mv := range movements {
		if mv.Kind != core.Income {
			continue
		}
		b := bucket(mv.Date)
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// LoadMovements assembles the aggregator input set from the store: the
// cumulative weekly income rows unioned with the withdrawal history entries.
// Income history entries are skipped here; their deltas are already folded
// into the weekly rows.
func LoadMovements(ctx context.Context, st store.Store) ([]core.Movement, error) {
	balances, err := st.List(ctx, store.Balances)
	if err != nil {
		return nil, fmt.Errorf("load weekly balances: %w", err)
	}
	history, err := st.List(ctx, store.History)
	if err != nil {
		return nil, fmt.Errorf("load ledger history: %w", err)
	}

	movements := make([]core.Movement, 0, len(balances)+len(history))
	for key, doc := range balances {
		b, err := store.DecodeWeeklyBalance(doc)
		if err != nil {
			return nil, fmt.Errorf("balance %s: %w", key, err)
		}
		movements = append(movements, core.Movement{
			Kind:      core.Income,
			Date:      b.WeekOf,
			Amount:    b.Amount,
			CreatedAt: b.CreatedAt,
		})
	}
	for key, doc := range history {
		entry, err := store.DecodeHistoryEntry(key, doc)
		if err != nil {
			return nil, err
		}
		if entry.Kind != core.Withdrawal {
			continue
		}
		movements = append(movements, entry.Movement)
	}
	return movements, nil
}

// LoadHistory returns every audit row, newest first, for the ledger page.
func LoadHistory(ctx context.Context, st store.Store) ([]core.HistoryEntry, error) {
	docs, err := st.List(ctx, store.History)
	if err != nil {
		return nil, fmt.Errorf("load ledger history: %w", err)
	}
	entries := make([]core.HistoryEntry, 0, len(docs))
	for key, doc := range docs {
		entry, err := store.DecodeHistoryEntry(key, doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}
