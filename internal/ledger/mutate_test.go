package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
	"caixa/internal/store/memory"
)

func newTestMutator(t *testing.T) (*Mutator, *memory.Store, *time.Time) {
	t.Helper()
	st := memory.New()
	m := NewMutator(st)
	now := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, st, &now
}

func readBalance(t *testing.T, st store.Store, weekKey string) (core.WeeklyBalance, bool) {
	t.Helper()
	doc, err := st.ReadDocument(context.Background(), store.Balances, weekKey)
	if errors.Is(err, store.ErrNotFound) {
		return core.WeeklyBalance{}, false
	}
	if err != nil {
		t.Fatalf("read balance: %v", err)
	}
	b, err := store.DecodeWeeklyBalance(doc)
	if err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	return b, true
}

func TestRecordIncomeAccumulatesPerWeek(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC) // Wednesday, week of 2025-06-08

	if _, err := m.RecordIncome(ctx, day, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("first income: %v", err)
	}
	if _, err := m.RecordIncome(ctx, day, core.Money{Cents: 5000}); err != nil {
		t.Fatalf("second income: %v", err)
	}

	b, ok := readBalance(t, st, "2025-06-08")
	if !ok {
		t.Fatal("weekly balance row missing")
	}
	if b.Amount.Cents != 15000 {
		t.Fatalf("balance = %d, want 15000", b.Amount.Cents)
	}

	history, err := st.List(ctx, store.History)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history rows = %d, want 2", len(history))
	}
}

func TestRecordIncomeRejectsNonPositiveAmounts(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	for _, cents := range []int64{0, -500} {
		if _, err := m.RecordIncome(ctx, day, core.Money{Cents: cents}); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %d: got %v, want ErrInvalidAmount", cents, err)
		}
	}

	if _, ok := readBalance(t, st, "2025-06-08"); ok {
		t.Fatal("rejected income must not create a weekly balance")
	}
	history, _ := st.List(ctx, store.History)
	if len(history) != 0 {
		t.Fatal("rejected income must not append history")
	}
}

func TestRecordWithdrawal(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()

	entry, err := m.RecordWithdrawal(ctx, core.Money{Cents: 3000}, "supplies", true)
	if err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	if entry.Kind != core.Withdrawal || entry.Amount.Cents != 3000 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// withdrawals never touch the weekly balance
	balances, _ := st.List(ctx, store.Balances)
	if len(balances) != 0 {
		t.Fatal("withdrawal must not create balance rows")
	}
}

func TestRecordWithdrawalPreconditions(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()

	if _, err := m.RecordWithdrawal(ctx, core.Money{Cents: 0}, "supplies", true); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := m.RecordWithdrawal(ctx, core.Money{Cents: 100}, "   ", true); !errors.Is(err, core.ErrMissingReason) {
		t.Fatalf("blank reason: got %v", err)
	}
	if _, err := m.RecordWithdrawal(ctx, core.Money{Cents: 100}, "supplies", false); !errors.Is(err, ErrConfirmationDeclined) {
		t.Fatalf("declined confirmation: got %v", err)
	}

	history, _ := st.List(ctx, store.History)
	if len(history) != 0 {
		t.Fatal("no precondition failure may write to the store")
	}
}

func TestDeleteIncomeRestoresBalance(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	if _, err := m.RecordIncome(ctx, day, core.Money{Cents: 10000}); err != nil {
		t.Fatal(err)
	}
	entry, err := m.RecordIncome(ctx, day, core.Money{Cents: 5000})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteHistoryEntry(ctx, entry, true); err != nil {
		t.Fatalf("delete: %v", err)
	}

	b, ok := readBalance(t, st, "2025-06-08")
	if !ok || b.Amount.Cents != 10000 {
		t.Fatalf("balance after reversal = %+v (found=%v), want 10000", b, ok)
	}
	history, _ := st.List(ctx, store.History)
	if len(history) != 1 {
		t.Fatalf("history rows after delete = %d, want 1", len(history))
	}
}

func TestDeleteLastIncomeRemovesBalanceRow(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	entry, err := m.RecordIncome(ctx, day, core.Money{Cents: 7000})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteHistoryEntry(ctx, entry, true); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok := readBalance(t, st, "2025-06-08"); ok {
		t.Fatal("balance row must be removed when the amount drops to zero")
	}
}

func TestDeleteWithdrawalLeavesBalancesAlone(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	if _, err := m.RecordIncome(ctx, day, core.Money{Cents: 10000}); err != nil {
		t.Fatal(err)
	}
	entry, err := m.RecordWithdrawal(ctx, core.Money{Cents: 3000}, "supplies", true)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteHistoryEntry(ctx, entry, true); err != nil {
		t.Fatalf("delete withdrawal: %v", err)
	}

	b, ok := readBalance(t, st, "2025-06-08")
	if !ok || b.Amount.Cents != 10000 {
		t.Fatalf("withdrawal delete must not adjust balances, got %+v", b)
	}
}

func TestDeleteWindowBoundary(t *testing.T) {
	m, _, now := newTestMutator(t)
	ctx := context.Background()

	entry, err := m.RecordWithdrawal(ctx, core.Money{Cents: 100}, "boundary check", true)
	if err != nil {
		t.Fatal(err)
	}

	// 4:59 after creation: still deletable
	*now = entry.CreatedAt.Add(4*time.Minute + 59*time.Second)
	if !m.CanDelete(entry) {
		t.Fatal("entry at 4:59 must still be deletable")
	}
	if err := m.DeleteHistoryEntry(ctx, entry, true); err != nil {
		t.Fatalf("delete at 4:59: %v", err)
	}

	// 5:01 after creation: rejected
	entry2, err := m.RecordWithdrawal(ctx, core.Money{Cents: 100}, "boundary check", true)
	if err != nil {
		t.Fatal(err)
	}
	*now = entry2.CreatedAt.Add(5*time.Minute + time.Second)
	if m.CanDelete(entry2) {
		t.Fatal("entry at 5:01 must not be deletable")
	}
	if err := m.DeleteHistoryEntry(ctx, entry2, true); !errors.Is(err, ErrDeleteWindowExpired) {
		t.Fatalf("delete at 5:01: got %v, want ErrDeleteWindowExpired", err)
	}
}

func TestDeleteDeclinedConfirmationIsNoOp(t *testing.T) {
	m, st, _ := newTestMutator(t)
	ctx := context.Background()

	entry, err := m.RecordWithdrawal(ctx, core.Money{Cents: 100}, "keep me", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteHistoryEntry(ctx, entry, false); !errors.Is(err, ErrConfirmationDeclined) {
		t.Fatalf("got %v, want ErrConfirmationDeclined", err)
	}

	history, _ := st.List(ctx, store.History)
	if len(history) != 1 {
		t.Fatal("declined delete must leave the entry in place")
	}
}

func TestRecordIncomeCommutesAcrossCallOrder(t *testing.T) {
	amounts := []int64{10000, 5000, 2500}
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	run := func(order []int64) int64 {
		m, st, _ := newTestMutator(t)
		for _, cents := range order {
			if _, err := m.RecordIncome(context.Background(), day, core.Money{Cents: cents}); err != nil {
				t.Fatal(err)
			}
		}
		b, _ := readBalance(t, st, "2025-06-08")
		return b.Amount.Cents
	}

	forward := run(amounts)
	reversed := run([]int64{2500, 5000, 10000})
	if forward != reversed || forward != 17500 {
		t.Fatalf("balance depends on call order: %d vs %d", forward, reversed)
	}
}

func TestValidationTaxonomy(t *testing.T) {
	if !IsValidation(core.ErrInvalidAmount) || !IsValidation(ErrDeleteWindowExpired) {
		t.Fatal("validation sentinels must be classified as validation")
	}
	if IsValidation(errors.New("network unreachable")) {
		t.Fatal("store errors must not be classified as validation")
	}
	if IsValidation(ErrConfirmationDeclined) {
		t.Fatal("declined confirmation is a no-op, not a validation failure")
	}
}
