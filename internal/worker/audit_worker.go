// Package worker mirrors ledger history events into the treasurer's
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"caixa/internal/amqp"
	"caixa/internal/ledger"
	"caixa/internal/sheets"
	"caixa/internal/store"
)

// AuditWorker consumes ledger audit messages and appends them as rows.
// The store is consulted for recorded entries so the mirrored amount is
// whatever actually landed, not what the publisher thought it wrote.
type AuditWorker struct {
	store    store.Store
	appender sheets.AuditAppender
}

func NewAuditWorker(st store.Store, appender sheets.AuditAppender) *AuditWorker {
	return &AuditWorker{store: st, appender: appender}
}

// Row labels shown to the treasurer in the mirrored sheet.
const (
	labelRecorded = "LANÇADO"
	labelReversed = "ESTORNADO"
)

func sheetAction(action string) string {
	if action == amqp.ActionDeleted {
		return labelReversed
	}
	return labelRecorded
}

// HandleAuditMessage processes a single audit message.
func (w *AuditWorker) HandleAuditMessage(ctx context.Context, msg *amqp.AuditMessage) error {
	row := sheets.Row{
		Action:      sheetAction(msg.Action),
		Kind:        msg.Kind,
		Date:        msg.Date,
		AmountCents: msg.AmountCents,
		Reason:      msg.Reason,
	}

	if msg.Action == amqp.ActionRecorded {
		doc, err := w.store.ReadDocument(ctx, store.History, msg.EntryID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Deleted inside the window before the worker caught up. The
			// message payload is still the authoritative record of what
			// was briefly in the ledger, so mirror it as-is.
			slog.WarnContext(ctx, "History entry gone before mirroring, using message payload",
				"entry_id", msg.EntryID)
		case err != nil:
			return fmt.Errorf("read history entry %s: %w", msg.EntryID, err)
		default:
			entry, err := store.DecodeHistoryEntry(msg.EntryID, doc)
			if err != nil {
				return fmt.Errorf("decode history entry %s: %w", msg.EntryID, err)
			}
			row.Kind = string(entry.Kind)
			row.Date = entry.Date.Format("2006-01-02")
			row.AmountCents = entry.Amount.Cents
			row.Reason = entry.Reason
		}
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored ledger event",
		"action", msg.Action,
		"entry_id", msg.EntryID,
		"sheets_ref", ref)
	return nil
}

// BackfillHistory appends every existing history entry, oldest first. Run
// once when pointing the mirror at a fresh spreadsheet.
func (w *AuditWorker) BackfillHistory(ctx context.Context) error {
	entries, err := ledger.LoadHistory(ctx, w.store)
	if err != nil {
		return fmt.Errorf("load history for backfill: %w", err)
	}
	// LoadHistory is newest first; backfill wants chronological order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	for _, entry := range entries {
		row := sheets.Row{
			Action:      labelRecorded,
			Kind:        string(entry.Kind),
			Date:        entry.Date.Format("2006-01-02"),
			AmountCents: entry.Amount.Cents,
			Reason:      entry.Reason,
		}
		if _, err := w.appender.Append(ctx, row); err != nil {
			return fmt.Errorf("backfill entry %s: %w", entry.ID, err)
		}
	}

	slog.InfoContext(ctx, "History backfill completed", "entries", len(entries))
	return nil
}
