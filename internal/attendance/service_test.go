package attendance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
	"caixa/internal/store/memory"
)

var wednesday = time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC) // week of 2025-06-08

func students() []core.Student {
	return []core.Student{
		{ID: "s1", Name: "Ana"},
		{ID: "s2", Name: "Pedro"},
	}
}

func TestEnsureWeekCreatesSheetOnce(t *testing.T) {
	st := memory.New()
	s := NewService(st)
	ctx := context.Background()

	weekOf, err := s.EnsureWeek(ctx, wednesday)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if weekOf.Format(core.DateLayout) != "2025-06-08" {
		t.Fatalf("weekOf = %s, want 2025-06-08", weekOf.Format(core.DateLayout))
	}

	// second call reuses the sheet
	if _, err := s.EnsureWeek(ctx, wednesday.AddDate(0, 0, 2)); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	sheets, _ := st.List(ctx, store.AttendanceWeeks)
	if len(sheets) != 1 {
		t.Fatalf("sheets = %d, want 1", len(sheets))
	}
}

func TestToggleAndWeekRecords(t *testing.T) {
	s := NewService(memory.New())
	ctx := context.Background()
	ana := students()[0]

	if err := s.Toggle(ctx, wednesday, ana, true, false); err != nil {
		t.Fatalf("mark present: %v", err)
	}

	recs, err := s.WeekRecords(ctx, wednesday)
	if err != nil {
		t.Fatalf("week records: %v", err)
	}
	if !recs["s1"].Present {
		t.Fatal("Ana should be present")
	}

	// unmarking needs confirmation
	if err := s.Toggle(ctx, wednesday, ana, false, false); !errors.Is(err, core.ErrConfirmationDeclined) {
		t.Fatalf("unconfirmed unmark: got %v", err)
	}
	if err := s.Toggle(ctx, wednesday, ana, false, true); err != nil {
		t.Fatalf("confirmed unmark: %v", err)
	}
	recs, _ = s.WeekRecords(ctx, wednesday)
	if recs["s1"].Present {
		t.Fatal("Ana should be absent after confirmed unmark")
	}
}

func TestMarkAll(t *testing.T) {
	s := NewService(memory.New())
	ctx := context.Background()

	if err := s.MarkAll(ctx, wednesday, students(), true); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	recs, _ := s.WeekRecords(ctx, wednesday)
	if len(recs) != 2 || !recs["s1"].Present || !recs["s2"].Present {
		t.Fatalf("expected both present, got %+v", recs)
	}

	if err := s.MarkAll(ctx, wednesday, students(), false); err != nil {
		t.Fatalf("mark all absent: %v", err)
	}
	recs, _ = s.WeekRecords(ctx, wednesday)
	if recs["s1"].Present || recs["s2"].Present {
		t.Fatal("expected both absent after bulk unmark")
	}
}

func TestWeekRecordsIsolatesWeeks(t *testing.T) {
	s := NewService(memory.New())
	ctx := context.Background()
	ana := students()[0]

	if err := s.Toggle(ctx, wednesday, ana, true, false); err != nil {
		t.Fatal(err)
	}
	nextWeek := wednesday.AddDate(0, 0, 7)
	if err := s.Toggle(ctx, nextWeek, ana, true, false); err != nil {
		t.Fatal(err)
	}

	recs, _ := s.WeekRecords(ctx, wednesday)
	if len(recs) != 1 {
		t.Fatalf("week records leaked across weeks: %+v", recs)
	}
	all, _ := s.AllRecords(ctx)
	if len(all) != 2 {
		t.Fatalf("all records = %d, want 2", len(all))
	}
}

func TestDebouncerTrailingEdge(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Do(func() { calls.Add(1) })
	}
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("debounced calls = %d, want 1", got)
	}
}
