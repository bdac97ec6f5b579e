package reports

import (
	"testing"
	"time"

	"caixa/internal/core"
)

func week(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(id, name string, weekOf string, present bool) core.AttendanceRecord {
	return core.AttendanceRecord{
		StudentID:   id,
		StudentName: name,
		Present:     present,
		WeekOf:      week(weekOf),
	}
}

func sample() []core.AttendanceRecord {
	return []core.AttendanceRecord{
		rec("s1", "Ana", "2025-06-01", true),
		rec("s1", "Ana", "2025-06-08", true),
		rec("s1", "Ana", "2025-06-15", false),
		rec("s2", "Pedro", "2025-06-01", false),
		rec("s2", "Pedro", "2025-06-08", true),
		rec("s3", "Maria", "2025-07-06", true),
	}
}

func TestBuildComputesFrequency(t *testing.T) {
	rows := Build(sample(), Filter{})
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// Maria 100%, Ana 66.67%, Pedro 50%
	if rows[0].StudentName != "Maria" || rows[0].Frequency != 100 {
		t.Fatalf("row 0 = %+v, want Maria at 100%%", rows[0])
	}
	if rows[1].StudentName != "Ana" || rows[1].Total != 3 || rows[1].Present != 2 {
		t.Fatalf("row 1 = %+v, want Ana 2/3", rows[1])
	}
	if got := rows[1].Frequency; got < 66.6 || got > 66.7 {
		t.Fatalf("Ana frequency = %v", got)
	}
	if rows[2].StudentName != "Pedro" || rows[2].Frequency != 50 {
		t.Fatalf("row 2 = %+v, want Pedro at 50%%", rows[2])
	}
}

func TestBuildFilterByName(t *testing.T) {
	rows := Build(sample(), Filter{Name: "an"})
	if len(rows) != 1 || rows[0].StudentName != "Ana" {
		t.Fatalf("name filter: got %+v", rows)
	}
}

func TestBuildFilterByMonth(t *testing.T) {
	rows := Build(sample(), Filter{Month: "2025-07"})
	if len(rows) != 1 || rows[0].StudentName != "Maria" {
		t.Fatalf("month filter: got %+v", rows)
	}

	rows = Build(sample(), Filter{Month: "2025-06"})
	if len(rows) != 2 {
		t.Fatalf("month filter 2025-06: got %+v", rows)
	}
}

func TestBuildTieBreaksByName(t *testing.T) {
	records := []core.AttendanceRecord{
		rec("s1", "Bruno", "2025-06-01", true),
		rec("s2", "Alice", "2025-06-01", true),
	}
	rows := Build(records, Filter{})
	if rows[0].StudentName != "Alice" || rows[1].StudentName != "Bruno" {
		t.Fatalf("tie break: got %+v", rows)
	}
}
