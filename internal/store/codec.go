package store

import (
	"encoding/json"
	"fmt"
	"time"

	"caixa/internal/core"
)

// Field accessors tolerant of the types a JSON round-trip produces
// (float64 for numbers, strings for timestamps).

func (d Doc) String(field string) string {
	s, _ := d[field].(string)
	return s
}

func (d Doc) Int64(field string) int64 {
	switch v := d[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func (d Doc) Bool(field string) bool {
	b, _ := d[field].(bool)
	return b
}

func (d Doc) Time(field string) time.Time {
	switch v := d[field].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		if t, err := core.ParseDate(v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Encoding of the domain types into documents. Dates are stored as
// "YYYY-MM-DD" keys and timestamps as RFC 3339, matching the collections the
// original database held.

func EncodeHistoryEntry(mv core.Movement) Doc {
	return Doc{
		"type":       string(mv.Kind),
		"date":       mv.Date.Format(core.DateLayout),
		"amount":     mv.Amount.Cents,
		"reason":     mv.Reason,
		"created_at": mv.CreatedAt.Format(time.RFC3339Nano),
	}
}

func DecodeHistoryEntry(key string, d Doc) (core.HistoryEntry, error) {
	date, err := core.ParseDate(d.String("date"))
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("history entry %s: %w", key, err)
	}
	return core.HistoryEntry{
		ID: key,
		Movement: core.Movement{
			Kind:      core.MovementKind(d.String("type")),
			Date:      date,
			Amount:    core.Money{Cents: d.Int64("amount")},
			Reason:    d.String("reason"),
			CreatedAt: d.Time("created_at"),
		},
	}, nil
}

func EncodeWeeklyBalance(b core.WeeklyBalance) Doc {
	return Doc{
		"date":       b.WeekOf.Format(core.DateLayout),
		"amount":     b.Amount.Cents,
		"created_at": b.CreatedAt.Format(time.RFC3339Nano),
	}
}

func DecodeWeeklyBalance(d Doc) (core.WeeklyBalance, error) {
	weekOf, err := core.ParseDate(d.String("date"))
	if err != nil {
		return core.WeeklyBalance{}, fmt.Errorf("weekly balance: %w", err)
	}
	return core.WeeklyBalance{
		WeekOf:    weekOf,
		Amount:    core.Money{Cents: d.Int64("amount")},
		CreatedAt: d.Time("created_at"),
	}, nil
}

func EncodeStudent(s core.Student) Doc {
	return Doc{
		"name":       s.Name,
		"created_at": s.CreatedAt.Format(time.RFC3339Nano),
	}
}

func DecodeStudent(key string, d Doc) core.Student {
	return core.Student{
		ID:        key,
		Name:      d.String("name"),
		CreatedAt: d.Time("created_at"),
	}
}

func EncodeAttendanceRecord(r core.AttendanceRecord) Doc {
	return Doc{
		"student_id":   r.StudentID,
		"student_name": r.StudentName,
		"present":      r.Present,
		"date":         r.WeekOf.Format(core.DateLayout),
		"updated_at":   r.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func DecodeAttendanceRecord(d Doc) (core.AttendanceRecord, error) {
	weekOf, err := core.ParseDate(d.String("date"))
	if err != nil {
		return core.AttendanceRecord{}, fmt.Errorf("attendance record: %w", err)
	}
	return core.AttendanceRecord{
		StudentID:   d.String("student_id"),
		StudentName: d.String("student_name"),
		Present:     d.Bool("present"),
		WeekOf:      weekOf,
		UpdatedAt:   d.Time("updated_at"),
	}, nil
}

func EncodeScheduleSlot(sl core.ScheduleSlot) Doc {
	return Doc{
		"teacher": sl.Teacher,
		"date":    sl.Date.Format(core.DateLayout),
		"lesson":  sl.Lesson,
		"quarter": sl.Quarter,
	}
}

func DecodeScheduleSlot(key string, d Doc) (core.ScheduleSlot, error) {
	date, err := core.ParseDate(d.String("date"))
	if err != nil {
		return core.ScheduleSlot{}, fmt.Errorf("schedule slot %s: %w", key, err)
	}
	return core.ScheduleSlot{
		ID:      key,
		Teacher: d.String("teacher"),
		Date:    date,
		Lesson:  d.String("lesson"),
		Quarter: d.String("quarter"),
	}, nil
}

// RecordKey keys one attendance record inside a weekly sheet.
func RecordKey(weekOf time.Time, studentID string) string {
	return weekOf.Format(core.DateLayout) + "/" + studentID
}
