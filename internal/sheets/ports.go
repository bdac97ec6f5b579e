package sheets

import "context"

// Row is one mirrored ledger event.
type Row struct {
	Action      string // "recorded" or "deleted"
	Kind        string
	Date        string // YYYY-MM-DD
	AmountCents int64
	Reason      string
}

// AuditAppender is the outbound port for the treasurer's spreadsheet.
type AuditAppender interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
