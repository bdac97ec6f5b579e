package core

import "time"

// DateLayout is the canonical day-resolution key used across collections.
const DateLayout = "2006-01-02"

// WeekKey returns the Sunday that opens the week containing t, truncated to
// midnight UTC. All weekly balances and attendance sheets are keyed by it.
func WeekKey(t time.Time) time.Time {
	t = DayKey(t)
	return t.AddDate(0, 0, -int(t.Weekday()))
}

// DayKey truncates t to midnight UTC.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthKey returns the "YYYY-MM" bucket for t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ParseDate parses a canonical "YYYY-MM-DD" key.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
