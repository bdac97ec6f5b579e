package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Income movements fold into the weekly cash-box balance.
	Income MovementKind = "entrada"
	// Withdrawal movements are independent ledger lines and never touch the balance.
	Withdrawal MovementKind = "retirada"

	// IncomeReason is the fixed reason label recorded for every income entry.
	IncomeReason = "Lançamento de entrada"
)

type (
	MovementKind string

	Money struct {
		Cents int64
	}

	// Movement is a single financial event in the cash-box ledger.
	Movement struct {
		Kind      MovementKind
		Date      time.Time // day resolution
		Amount    Money
		Reason    string
		CreatedAt time.Time
	}

	// WeeklyBalance is the running cumulative income total for one calendar
	// week, keyed by the Sunday that opens it.
	WeeklyBalance struct {
		WeekOf    time.Time
		Amount    Money
		CreatedAt time.Time
	}

	// HistoryEntry is an append-only audit row for every income or withdrawal
	// action. It is removed only by an explicit, time-bounded delete.
	HistoryEntry struct {
		ID string
		Movement
	}

	Student struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}

	// AttendanceRecord is one student's presence mark on one weekly sheet.
	AttendanceRecord struct {
		StudentID   string
		StudentName string
		Present     bool
		WeekOf      time.Time
		UpdatedAt   time.Time
	}

	// ScheduleSlot assigns a teacher to a lesson on a given date. At most one
	// slot may exist per date.
	ScheduleSlot struct {
		ID      string
		Teacher string
		Date    time.Time
		Lesson  string // numeric string, validated
		Quarter string
	}
)

var (
	// ErrConfirmationDeclined marks a destructive action the user backed out
	// of at the confirmation gate. It is a no-op path, not a failure.
	ErrConfirmationDeclined = errors.New("confirmation declined")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingReason = errors.New("missing withdrawal reason")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty student name")
	ErrEmptyTeacher  = errors.New("empty teacher name")
	ErrInvalidLesson = errors.New("lesson must be a number")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k MovementKind) Valid() bool {
	return k == Income || k == Withdrawal
}

func (mv Movement) Validate() error {
	if !mv.Kind.Valid() {
		return errors.New("invalid movement kind")
	}
	if mv.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := mv.Amount.Validate(); err != nil {
		return err
	}
	if mv.Kind == Withdrawal && strings.TrimSpace(mv.Reason) == "" {
		return ErrMissingReason
	}
	return nil
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (sl ScheduleSlot) Validate() error {
	if strings.TrimSpace(sl.Teacher) == "" {
		return ErrEmptyTeacher
	}
	if sl.Date.IsZero() {
		return ErrInvalidDate
	}
	lesson := strings.TrimSpace(sl.Lesson)
	if lesson == "" {
		return ErrInvalidLesson
	}
	for _, r := range lesson {
		if r < '0' || r > '9' {
			return ErrInvalidLesson
		}
	}
	return nil
}
