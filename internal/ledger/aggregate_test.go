package ledger

import (
	"reflect"
	"testing"
	"time"

	"caixa/internal/core"
)

func date(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func income(day string, cents int64) core.Movement {
	return core.Movement{Kind: core.Income, Date: date(day), Amount: core.Money{Cents: cents}, Reason: core.IncomeReason}
}

func withdrawal(day string, cents int64, reason string) core.Movement {
	return core.Movement{Kind: core.Withdrawal, Date: date(day), Amount: core.Money{Cents: cents}, Reason: reason}
}

func TestAggregateTotalsAndBalance(t *testing.T) {
	movements := []core.Movement{
		income("2025-06-08", 15000), // weekly row already cumulative: 100 + 50
		withdrawal("2025-06-10", 3000, "supplies"),
	}

	s := Aggregate(movements, Filter{})

	if s.Total.Cents != 15000 {
		t.Fatalf("Total = %d, want 15000", s.Total.Cents)
	}
	if s.TotalWithdrawals.Cents != 3000 {
		t.Fatalf("TotalWithdrawals = %d, want 3000", s.TotalWithdrawals.Cents)
	}
	if s.FinalBalance.Cents != 12000 {
		t.Fatalf("FinalBalance = %d, want 12000", s.FinalBalance.Cents)
	}
	if got := s.ByWeek["2025-06-08"].Cents; got != 15000 {
		t.Fatalf("ByWeek[2025-06-08] = %d, want 15000", got)
	}
	if got := s.ByMonth["2025-06"].Cents; got != 15000 {
		t.Fatalf("ByMonth[2025-06] = %d, want 15000", got)
	}
}

func TestAggregateNegativeBalanceIsNotAnError(t *testing.T) {
	s := Aggregate([]core.Movement{
		income("2025-06-08", 1000),
		withdrawal("2025-06-09", 5000, "rent"),
	}, Filter{})
	if s.FinalBalance.Cents != -4000 {
		t.Fatalf("FinalBalance = %d, want -4000", s.FinalBalance.Cents)
	}
}

func TestAggregateTypeFilter(t *testing.T) {
	movements := []core.Movement{
		income("2025-06-01", 1000),
		income("2025-06-08", 2000),
		withdrawal("2025-06-09", 500, "transport"),
	}

	s := Aggregate(movements, Filter{Type: string(core.Withdrawal)})

	if len(s.Items) != 1 || s.Items[0].Kind != core.Withdrawal {
		t.Fatalf("expected exactly the withdrawal, got %d items", len(s.Items))
	}
	if s.Total.Cents != 0 {
		t.Fatalf("Total = %d, want 0 with withdrawal-only filter", s.Total.Cents)
	}
	if s.TotalWithdrawals.Cents != 500 {
		t.Fatalf("TotalWithdrawals = %d, want 500", s.TotalWithdrawals.Cents)
	}
}

func TestAggregateSearchIsCaseInsensitive(t *testing.T) {
	movements := []core.Movement{
		withdrawal("2025-06-09", 500, "Compra de material"),
		withdrawal("2025-06-10", 700, "Transporte"),
	}

	s := Aggregate(movements, Filter{Search: "material"})

	if len(s.Items) != 1 || s.Items[0].Reason != "Compra de material" {
		t.Fatalf("search should match only the material purchase, got %+v", s.Items)
	}
}

func TestAggregateEmptySearchMatchesReasonlessItems(t *testing.T) {
	mv := income("2025-06-08", 1000)
	mv.Reason = ""
	s := Aggregate([]core.Movement{mv}, Filter{Search: ""})
	if len(s.Items) != 1 {
		t.Fatalf("empty search must match movements without a reason")
	}
}

func TestAggregatePeriodFilters(t *testing.T) {
	movements := []core.Movement{
		income("2025-05-04", 1000),
		income("2025-06-08", 2000),
		income("2024-06-09", 4000),
	}

	month := Aggregate(movements, Filter{Period: PeriodMonth, PeriodValue: "2025-06"})
	if month.Total.Cents != 2000 {
		t.Fatalf("month filter Total = %d, want 2000", month.Total.Cents)
	}

	year := Aggregate(movements, Filter{Period: PeriodYear, PeriodValue: "2025"})
	if year.Total.Cents != 3000 {
		t.Fatalf("year filter Total = %d, want 3000", year.Total.Cents)
	}
}

func TestAggregateDateRangeInclusive(t *testing.T) {
	movements := []core.Movement{
		income("2025-06-01", 100),
		income("2025-06-08", 200),
		income("2025-06-15", 400),
	}

	s := Aggregate(movements, Filter{DateStart: date("2025-06-01"), DateEnd: date("2025-06-08")})
	if s.Total.Cents != 300 {
		t.Fatalf("inclusive range Total = %d, want 300", s.Total.Cents)
	}

	// only one bound set: range is ignored
	open := Aggregate(movements, Filter{DateStart: date("2025-06-08")})
	if open.Total.Cents != 700 {
		t.Fatalf("half-open range should be ignored, Total = %d, want 700", open.Total.Cents)
	}
}

func TestAggregateSortsDateDescendingStably(t *testing.T) {
	a := withdrawal("2025-06-09", 100, "first")
	b := withdrawal("2025-06-09", 200, "second")
	c := withdrawal("2025-06-10", 300, "newest")

	s := Aggregate([]core.Movement{a, b, c}, Filter{})

	if s.Items[0].Reason != "newest" {
		t.Fatalf("expected newest first, got %q", s.Items[0].Reason)
	}
	// ties keep original relative order
	if s.Items[1].Reason != "first" || s.Items[2].Reason != "second" {
		t.Fatalf("tie order not stable: %q, %q", s.Items[1].Reason, s.Items[2].Reason)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	movements := []core.Movement{
		income("2025-06-08", 15000),
		withdrawal("2025-06-10", 3000, "supplies"),
		withdrawal("2025-06-11", 700, "transport"),
	}
	f := Filter{Period: PeriodMonth, PeriodValue: "2025-06", Search: ""}

	first := Aggregate(movements, f)
	second := Aggregate(movements, f)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Aggregate must be deterministic for identical inputs")
	}
	if first.FinalBalance.Cents != first.Total.Cents-first.TotalWithdrawals.Cents {
		t.Fatal("FinalBalance must equal Total - TotalWithdrawals")
	}
}

func TestMonthAndYearOptions(t *testing.T) {
	movements := []core.Movement{
		income("2025-06-08", 100),
		income("2025-05-04", 100),
		income("2025-06-15", 100),
		income("2024-12-01", 100),
		withdrawal("2023-01-01", 100, "ignored for options"),
	}

	months := MonthOptions(movements)
	wantMonths := []string{"2024-12", "2025-05", "2025-06"}
	if !reflect.DeepEqual(months, wantMonths) {
		t.Fatalf("MonthOptions = %v, want %v", months, wantMonths)
	}

	years := YearOptions(movements)
	wantYears := []string{"2024", "2025"}
	if !reflect.DeepEqual(years, wantYears) {
		t.Fatalf("YearOptions = %v, want %v", years, wantYears)
	}
}
