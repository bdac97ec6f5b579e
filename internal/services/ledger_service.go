// Package services composes the ledger mutator with the audit mirror.
package services

import (
	"context"
	"log/slog"
	"time"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/ledger"
)

// AuditPublisher is what the service needs from the AMQP client. Nil is a
// valid value and disables mirroring.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, msg *amqp.AuditMessage) error
}

// LedgerService runs ledger mutations and mirrors each accepted one to the
// audit queue. Publish failures never fail the mutation; the ledger in the
// store is the source of truth and the mirror is best effort.
type LedgerService struct {
	mutator   *ledger.Mutator
	publisher AuditPublisher
}

func NewLedgerService(mutator *ledger.Mutator, publisher AuditPublisher) *LedgerService {
	return &LedgerService{mutator: mutator, publisher: publisher}
}

func (s *LedgerService) RecordIncome(ctx context.Context, date time.Time, amount core.Money) (core.HistoryEntry, error) {
	entry, err := s.mutator.RecordIncome(ctx, date, amount)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	s.publish(ctx, amqp.NewEntryRecordedMessage(entry))
	return entry, nil
}

func (s *LedgerService) RecordWithdrawal(ctx context.Context, amount core.Money, reason string, confirmed bool) (core.HistoryEntry, error) {
	entry, err := s.mutator.RecordWithdrawal(ctx, amount, reason, confirmed)
	if err != nil {
		return core.HistoryEntry{}, err
	}
	s.publish(ctx, amqp.NewEntryRecordedMessage(entry))
	return entry, nil
}

func (s *LedgerService) DeleteHistoryEntry(ctx context.Context, entry core.HistoryEntry, confirmed bool) error {
	if err := s.mutator.DeleteHistoryEntry(ctx, entry, confirmed); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewEntryDeletedMessage(entry))
	return nil
}

// CanDelete reports whether the entry is still inside the deletion window.
func (s *LedgerService) CanDelete(entry core.HistoryEntry) bool {
	return s.mutator.CanDelete(entry)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.AuditMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAudit(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Audit mirror publish failed, ledger unaffected",
			"action", msg.Action,
			"entry_id", msg.EntryID,
			"error", err)
	}
}
