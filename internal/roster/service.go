// Package roster manages the student registry.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
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

func (s *Service) Add(ctx context.Context, name string) (core.Student, error) {
	student := core.Student{Name: strings.TrimSpace(name), CreatedAt: s.now()}
	if err := student.Validate(); err != nil {
		return core.Student{}, err
	}

	id, err := s.store.AppendDocument(ctx, store.Students, store.EncodeStudent(student))
	if err != nil {
		return core.Student{}, fmt.Errorf("append student: %w", err)
	}
	student.ID = id

	slog.InfoContext(ctx, "Student registered", "id", id, "name", student.Name)
	return student, nil
}

// List returns all students sorted by name.
func (s *Service) List(ctx context.Context) ([]core.Student, error) {
	docs, err := s.store.List(ctx, store.Students)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	students := make([]core.Student, 0, len(docs))
	for key, doc := range docs {
		students = append(students, store.DecodeStudent(key, doc))
	}
	sort.Slice(students, func(i, j int) bool {
		return students[i].Name < students[j].Name
	})
	return students, nil
}

// Remove deletes a student. Deletion is irreversible, so it sits behind the
// confirmation gate.
func (s *Service) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return core.ErrConfirmationDeclined
	}
	if err := s.store.DeleteDocument(ctx, store.Students, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Student removed", "id", id)
	return nil
}
