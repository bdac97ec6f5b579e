// Package reports aggregates attendance records into per-student
// frequency figures.
package reports

import (
	"context"
	"sort"
	"strings"

	"caixa/internal/attendance"
	"caixa/internal/core"
)

// StudentFrequency is one row of the frequency report.
type StudentFrequency struct {
	StudentID   string
	StudentName string
	Total       int
	Present     int
	Frequency   float64 // percentage, 0..100
}

// Filter narrows the report. Name matches case-insensitively as a
// substring; Month is a "YYYY-MM" prefix applied to the week key.
type Filter struct {
	Name  string
	Month string
}

type Service struct {
	attendance *attendance.Service
}

func NewService(att *attendance.Service) *Service {
	return &Service{attendance: att}
}

// Frequency builds the per-student report over every recorded week,
// sorted by frequency descending, ties broken by name.
func (s *Service) Frequency(ctx context.Context, f Filter) ([]StudentFrequency, error) {
	records, err := s.attendance.AllRecords(ctx)
	if err != nil {
		return nil, err
	}
	return Build(records, f), nil
}

// Build aggregates already-loaded records. Split out so exports can
// reuse it without a second store round trip.
func Build(records []core.AttendanceRecord, f Filter) []StudentFrequency {
	name := strings.ToLower(strings.TrimSpace(f.Name))

	byStudent := make(map[string]*StudentFrequency)
	var order []string
	for _, rec := range records {
		if f.Month != "" && !strings.HasPrefix(core.MonthKey(rec.WeekOf), f.Month) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(rec.StudentName), name) {
			continue
		}
		row, ok := byStudent[rec.StudentID]
		if !ok {
			row = &StudentFrequency{StudentID: rec.StudentID, StudentName: rec.StudentName}
			byStudent[rec.StudentID] = row
			order = append(order, rec.StudentID)
		}
		row.Total++
		if rec.Present {
			row.Present++
		}
	}

	out := make([]StudentFrequency, 0, len(order))
	for _, id := range order {
		row := byStudent[id]
		if row.Total > 0 {
			row.Frequency = float64(row.Present) / float64(row.Total) * 100
		}
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out
}
