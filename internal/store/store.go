// Package store defines the document-store port the services run against.
//
// The original deployment kept its data in a hosted realtime document
// database; the port mirrors that surface (keyed reads and upserts, appends
// with generated keys, change subscriptions) so the services never see the
// backing engine.
package store

import (
	"context"
	"errors"
)

// Collection names, kept identical to the hosted database they migrated from.
const (
	Balances          = "cashEntries"
	History           = "cashEntriesHistory"
	Students          = "students"
	AttendanceWeeks   = "attendance"
	AttendanceRecords = "attendance_records"
	Schedules         = "teacherSchedules"
)

// ErrNotFound is returned by ReadDocument for an absent key.
var ErrNotFound = errors.New("document not found")

// Doc is a flat, JSON-serializable field map.
type Doc map[string]any

type Store interface {
	// ReadDocument returns the document at key or ErrNotFound.
	ReadDocument(ctx context.Context, collection, key string) (Doc, error)
	// WriteDocument upserts the document at key.
	WriteDocument(ctx context.Context, collection, key string, doc Doc) error
	// WriteBatch upserts several documents of one collection as a unit,
	// firing a single change notification.
	WriteBatch(ctx context.Context, collection string, docs map[string]Doc) error
	DeleteDocument(ctx context.Context, collection, key string) error
	// AppendDocument inserts doc under a generated key and returns the key.
	AppendDocument(ctx context.Context, collection string, doc Doc) (string, error)
	// List returns every document in the collection, keyed.
	List(ctx context.Context, collection string) (map[string]Doc, error)
	// Subscribe registers onChange to fire after every successful mutation
	// of the collection. The returned handle unregisters it; the consumer
	// owns the unsubscription.
	Subscribe(collection string, onChange func()) (unsubscribe func())
	Close() error
}
