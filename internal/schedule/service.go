// Package schedule manages the teacher assignment calendar. Each date
// carries at most one slot.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

// ErrDateTaken is returned when a slot already exists for the requested
// date and belongs to a different entry.
var ErrDateTaken = errors.New("a teacher is already scheduled for this date")

// Sortable fields for List.
const (
	SortByTeacher = "teacher"
	SortByDate    = "date"
	SortByLesson  = "lesson"
	SortByQuarter = "quarter"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Upsert creates the slot when ID is empty, otherwise updates it. The
// unique-date rule excludes the slot being edited.
func (s *Service) Upsert(ctx context.Context, slot core.ScheduleSlot) (core.ScheduleSlot, error) {
	slot.Teacher = strings.TrimSpace(slot.Teacher)
	slot.Lesson = strings.TrimSpace(slot.Lesson)
	slot.Quarter = strings.TrimSpace(slot.Quarter)
	if err := slot.Validate(); err != nil {
		return core.ScheduleSlot{}, err
	}

	existing, err := s.list(ctx)
	if err != nil {
		return core.ScheduleSlot{}, err
	}
	day := core.DayKey(slot.Date)
	for _, other := range existing {
		if other.ID != slot.ID && core.DayKey(other.Date).Equal(day) {
			return core.ScheduleSlot{}, ErrDateTaken
		}
	}

	if slot.ID == "" {
		id, err := s.store.AppendDocument(ctx, store.Schedules, store.EncodeScheduleSlot(slot))
		if err != nil {
			return core.ScheduleSlot{}, fmt.Errorf("append schedule slot: %w", err)
		}
		slot.ID = id
		slog.InfoContext(ctx, "Schedule slot created", "id", id, "teacher", slot.Teacher, "date", day.Format(core.DateLayout))
		return slot, nil
	}

	if err := s.store.WriteDocument(ctx, store.Schedules, slot.ID, store.EncodeScheduleSlot(slot)); err != nil {
		return core.ScheduleSlot{}, fmt.Errorf("update schedule slot %s: %w", slot.ID, err)
	}
	slog.InfoContext(ctx, "Schedule slot updated", "id", slot.ID, "teacher", slot.Teacher, "date", day.Format(core.DateLayout))
	return slot, nil
}

// Delete removes a slot behind the confirmation gate.
func (s *Service) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return core.ErrConfirmationDeclined
	}
	if err := s.store.DeleteDocument(ctx, store.Schedules, id); err != nil {
		return fmt.Errorf("delete schedule slot %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Schedule slot deleted", "id", id)
	return nil
}

// List returns slots matching the search term, sorted by the requested
// field. Search matches case-insensitively across teacher, date, lesson
// and quarter. Lesson sorts numerically.
func (s *Service) List(ctx context.Context, search, sortBy string, desc bool) ([]core.ScheduleSlot, error) {
	slots, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		filtered := slots[:0]
		for _, slot := range slots {
			if matches(slot, term) {
				filtered = append(filtered, slot)
			}
		}
		slots = filtered
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case SortByTeacher:
			return a.Teacher < b.Teacher
		case SortByLesson:
			la, _ := strconv.Atoi(a.Lesson)
			lb, _ := strconv.Atoi(b.Lesson)
			return la < lb
		case SortByQuarter:
			return a.Quarter < b.Quarter
		default:
			return a.Date.Before(b.Date)
		}
	})
	return slots, nil
}

func matches(slot core.ScheduleSlot, term string) bool {
	for _, field := range []string{
		slot.Teacher,
		slot.Date.Format(core.DateLayout),
		slot.Lesson,
		slot.Quarter,
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *Service) list(ctx context.Context) ([]core.ScheduleSlot, error) {
	docs, err := s.store.List(ctx, store.Schedules)
	if err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}
	slots := make([]core.ScheduleSlot, 0, len(docs))
	for key, doc := range docs {
		slot, err := store.DecodeScheduleSlot(key, doc)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", key, err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
