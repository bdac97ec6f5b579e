package amqp

import (
	"encoding/json"
	"time"

	"caixa/internal/core"
)

// Audit actions carried on the wire.
const (
	ActionRecorded = "recorded"
	ActionDeleted  = "deleted"
)

// AuditMessage mirrors one ledger history event to the treasurer's
// spreadsheet. It carries the full entry because deleted entries are no
// longer readable from the store by the time the worker sees them.
type AuditMessage struct {
	Action      string    `json:"action"`
	EntryID     string    `json:"entry_id"`
	Kind        string    `json:"kind"`
	Date        string    `json:"date"` // YYYY-MM-DD
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewEntryRecordedMessage(entry core.HistoryEntry) *AuditMessage {
	return newAuditMessage(ActionRecorded, entry)
}

func NewEntryDeletedMessage(entry core.HistoryEntry) *AuditMessage {
	return newAuditMessage(ActionDeleted, entry)
}

func newAuditMessage(action string, entry core.HistoryEntry) *AuditMessage {
	return &AuditMessage{
		Action:      action,
		EntryID:     entry.ID,
		Kind:        string(entry.Kind),
		Date:        entry.Date.Format(core.DateLayout),
		AmountCents: entry.Amount.Cents,
		Reason:      entry.Reason,
		Timestamp:   time.Now(),
	}
}

func (m *AuditMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AuditMessageFromJSON(data []byte) (*AuditMessage, error) {
	var msg AuditMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
