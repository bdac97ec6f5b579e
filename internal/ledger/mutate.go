package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

// Mutator applies ledger mutations against the document store. All
// preconditions fail fast before any write; the weekly balance follows
// last-writer-wins semantics, a documented and accepted limitation of the
// original deployment.
type Mutator struct {
	store store.Store
	now   func() time.Time
}

func NewMutator(st store.Store) *Mutator {
	return &Mutator{store: st, now: time.Now}
}

// RecordIncome folds amount into the weekly balance of date's week and
// appends the audit entry. The balance write lands first; a history append
// failure after it is reported as an InconsistentStateError, never ignored.
func (m *Mutator) RecordIncome(ctx context.Context, date time.Time, amount core.Money) (core.HistoryEntry, error) {
	if err := amount.Validate(); err != nil {
		return core.HistoryEntry{}, err
	}
	if date.IsZero() {
		return core.HistoryEntry{}, core.ErrInvalidDate
	}

	now := m.now()
	week := core.WeekKey(date)
	weekKey := week.Format(core.DateLayout)

	current, createdAt := int64(0), now
	doc, err := m.store.ReadDocument(ctx, store.Balances, weekKey)
	switch {
	case err == nil:
		b, decErr := store.DecodeWeeklyBalance(doc)
		if decErr != nil {
			return core.HistoryEntry{}, decErr
		}
		current = b.Amount.Cents
		if !b.CreatedAt.IsZero() {
			createdAt = b.CreatedAt
		}
	case errors.Is(err, store.ErrNotFound):
		// first income of the week opens the row
	default:
		return core.HistoryEntry{}, fmt.Errorf("read weekly balance %s: %w", weekKey, err)
	}

	balance := core.WeeklyBalance{
		WeekOf:    week,
		Amount:    core.Money{Cents: current + amount.Cents},
		CreatedAt: createdAt,
	}
	if err := m.store.WriteDocument(ctx, store.Balances, weekKey, store.EncodeWeeklyBalance(balance)); err != nil {
		return core.HistoryEntry{}, fmt.Errorf("write weekly balance %s: %w", weekKey, err)
	}

	mv := core.Movement{
		Kind:      core.Income,
		Date:      core.DayKey(date),
		Amount:    amount,
		Reason:    core.IncomeReason,
		CreatedAt: now,
	}
	id, err := m.store.AppendDocument(ctx, store.History, store.EncodeHistoryEntry(mv))
	if err != nil {
		return core.HistoryEntry{}, &InconsistentStateError{Op: "record income", Err: err}
	}

	slog.InfoContext(ctx, "Income recorded",
		"week_of", weekKey,
		"amount_cents", amount.Cents,
		"balance_cents", balance.Amount.Cents,
		"entry_id", id)

	return core.HistoryEntry{ID: id, Movement: mv}, nil
}

// RecordWithdrawal appends an independent withdrawal line dated today.
// Withdrawals never touch the weekly balance.
func (m *Mutator) RecordWithdrawal(ctx context.Context, amount core.Money, reason string, confirmed bool) (core.HistoryEntry, error) {
	mv := core.Movement{
		Kind:      core.Withdrawal,
		Date:      core.DayKey(m.now()),
		Amount:    amount,
		Reason:    reason,
		CreatedAt: m.now(),
	}
	if err := mv.Validate(); err != nil {
		return core.HistoryEntry{}, err
	}
	if !confirmed {
		return core.HistoryEntry{}, ErrConfirmationDeclined
	}

	id, err := m.store.AppendDocument(ctx, store.History, store.EncodeHistoryEntry(mv))
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("append withdrawal: %w", err)
	}

	slog.InfoContext(ctx, "Withdrawal recorded",
		"amount_cents", amount.Cents,
		"reason", reason,
		"entry_id", id)

	return core.HistoryEntry{ID: id, Movement: mv}, nil
}

// DeleteHistoryEntry reverses a prior action while it is still inside
// DeleteWindow. Income reversals decrement the weekly balance first,
// removing the row outright when it would drop to zero or below, and the
// history entry is deleted afterwards in every case; the two steps are
// sequential, not alternatives.
func (m *Mutator) DeleteHistoryEntry(ctx context.Context, entry core.HistoryEntry, confirmed bool) error {
	if m.now().Sub(entry.CreatedAt) >= DeleteWindow {
		return ErrDeleteWindowExpired
	}
	if !confirmed {
		return ErrConfirmationDeclined
	}

	if entry.Kind == core.Income {
		if err := m.reverseIncome(ctx, entry); err != nil {
			return err
		}
	}

	if err := m.store.DeleteDocument(ctx, store.History, entry.ID); err != nil {
		if entry.Kind == core.Income {
			return &InconsistentStateError{Op: "delete income entry", Err: err}
		}
		return fmt.Errorf("delete history entry %s: %w", entry.ID, err)
	}

	slog.InfoContext(ctx, "History entry deleted",
		"entry_id", entry.ID,
		"kind", string(entry.Kind),
		"amount_cents", entry.Amount.Cents)

	return nil
}

func (m *Mutator) reverseIncome(ctx context.Context, entry core.HistoryEntry) error {
	weekKey := core.WeekKey(entry.Date).Format(core.DateLayout)

	doc, err := m.store.ReadDocument(ctx, store.Balances, weekKey)
	if errors.Is(err, store.ErrNotFound) {
		// balance already gone; the audit row still has to be removed
		return nil
	}
	if err != nil {
		return fmt.Errorf("read weekly balance %s: %w", weekKey, err)
	}

	b, err := store.DecodeWeeklyBalance(doc)
	if err != nil {
		return err
	}

	remaining := b.Amount.Cents - entry.Amount.Cents
	if remaining <= 0 {
		if err := m.store.DeleteDocument(ctx, store.Balances, weekKey); err != nil {
			return fmt.Errorf("delete weekly balance %s: %w", weekKey, err)
		}
		return nil
	}

	b.Amount = core.Money{Cents: remaining}
	if err := m.store.WriteDocument(ctx, store.Balances, weekKey, store.EncodeWeeklyBalance(b)); err != nil {
		return fmt.Errorf("write weekly balance %s: %w", weekKey, err)
	}
	return nil
}

// CanDelete reports whether entry is still inside its deletion window,
// used to decide whether the UI shows the delete control.
func (m *Mutator) CanDelete(entry core.HistoryEntry) bool {
	return m.now().Sub(entry.CreatedAt) < DeleteWindow
}
