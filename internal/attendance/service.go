// Package attendance keeps one presence sheet per calendar week, with one
// record per student on it.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// EnsureWeek creates the weekly sheet document on first access and returns
// its week key. Sheets are keyed by the Sunday opening the week.
func (s *Service) EnsureWeek(ctx context.Context, t time.Time) (time.Time, error) {
	weekOf := core.WeekKey(t)
	key := weekOf.Format(core.DateLayout)

	_, err := s.store.ReadDocument(ctx, store.AttendanceWeeks, key)
	if errors.Is(err, store.ErrNotFound) {
		doc := store.Doc{
			"weekOf":     key,
			"created_at": s.now().Format(time.RFC3339Nano),
		}
		if err := s.store.WriteDocument(ctx, store.AttendanceWeeks, key, doc); err != nil {
			return time.Time{}, fmt.Errorf("create week sheet %s: %w", key, err)
		}
		slog.InfoContext(ctx, "Attendance sheet opened", "week_of", key)
		return weekOf, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read week sheet %s: %w", key, err)
	}
	return weekOf, nil
}

// Toggle marks or unmarks one student's presence for the week containing t.
// Unmarking a presence is destructive from the user's point of view and
// sits behind the confirmation gate.
func (s *Service) Toggle(ctx context.Context, t time.Time, student core.Student, present, confirmed bool) error {
	if !present && !confirmed {
		return core.ErrConfirmationDeclined
	}

	weekOf, err := s.EnsureWeek(ctx, t)
	if err != nil {
		return err
	}

	rec := core.AttendanceRecord{
		StudentID:   student.ID,
		StudentName: student.Name,
		Present:     present,
		WeekOf:      weekOf,
		UpdatedAt:   s.now(),
	}
	key := store.RecordKey(weekOf, student.ID)
	if err := s.store.WriteDocument(ctx, store.AttendanceRecords, key, store.EncodeAttendanceRecord(rec)); err != nil {
		return fmt.Errorf("write attendance record %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Attendance toggled",
		"week_of", weekOf.Format(core.DateLayout),
		"student", student.Name,
		"present", present)
	return nil
}

// MarkAll sets every listed student's record for the week in one batch.
func (s *Service) MarkAll(ctx context.Context, t time.Time, students []core.Student, present bool) error {
	weekOf, err := s.EnsureWeek(ctx, t)
	if err != nil {
		return err
	}

	docs := make(map[string]store.Doc, len(students))
	now := s.now()
	for _, student := range students {
		rec := core.AttendanceRecord{
			StudentID:   student.ID,
			StudentName: student.Name,
			Present:     present,
			WeekOf:      weekOf,
			UpdatedAt:   now,
		}
		docs[store.RecordKey(weekOf, student.ID)] = store.EncodeAttendanceRecord(rec)
	}
	if err := s.store.WriteBatch(ctx, store.AttendanceRecords, docs); err != nil {
		return fmt.Errorf("bulk mark attendance: %w", err)
	}

	slog.InfoContext(ctx, "Attendance bulk-marked",
		"week_of", weekOf.Format(core.DateLayout),
		"students", len(students),
		"present", present)
	return nil
}

// WeekRecords returns the records of the week containing t, keyed by
// student ID.
func (s *Service) WeekRecords(ctx context.Context, t time.Time) (map[string]core.AttendanceRecord, error) {
	weekOf := core.WeekKey(t)
	all, err := s.AllRecords(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]core.AttendanceRecord)
	for _, rec := range all {
		if rec.WeekOf.Equal(weekOf) {
			out[rec.StudentID] = rec
		}
	}
	return out, nil
}

// AllRecords returns every attendance record across all weeks, ordered by
// week then student name, for the report aggregation.
func (s *Service) AllRecords(ctx context.Context) ([]core.AttendanceRecord, error) {
	docs, err := s.store.List(ctx, store.AttendanceRecords)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}

	records := make([]core.AttendanceRecord, 0, len(docs))
	for key, doc := range docs {
		rec, err := store.DecodeAttendanceRecord(doc)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", key, err)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].WeekOf.Equal(records[j].WeekOf) {
			return records[i].WeekOf.Before(records[j].WeekOf)
		}
		return records[i].StudentName < records[j].StudentName
	})
	return records, nil
}
