// Package sqlite backs the document store with a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"caixa/internal/store"
)

type Store struct {
	db  *sql.DB
	hub *store.NotifyHub
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, hub: store.NewNotifyHub()}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ReadDocument(ctx context.Context, collection, key string) (store.Doc, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s/%s: %w", collection, key, err)
	}

	var doc store.Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (s *Store) WriteDocument(ctx context.Context, collection, key string, doc store.Doc) error {
	if err := s.upsert(ctx, s.db, collection, key, doc); err != nil {
		return err
	}
	s.hub.Notify(collection)
	return nil
}

func (s *Store) WriteBatch(ctx context.Context, collection string, docs map[string]store.Doc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for key, doc := range docs {
		if err := s.upsert(ctx, tx, collection, key, doc); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.DebugContext(ctx, "Batch written", "collection", collection, "count", len(docs))
	s.hub.Notify(collection)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) upsert(ctx context.Context, db execer, collection, key string, doc store.Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, key, data, now, now,
	)
	if err != nil {
		return fmt.Errorf("write document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, key, err)
	}
	s.hub.Notify(collection)
	return nil
}

func (s *Store) AppendDocument(ctx context.Context, collection string, doc store.Doc) (string, error) {
	key := uuid.NewString()
	if err := s.WriteDocument(ctx, collection, key, doc); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) List(ctx context.Context, collection string) (map[string]store.Doc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data FROM documents WHERE collection = ?`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string]store.Doc)
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan document in %s: %w", collection, err)
		}
		var doc store.Doc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
		}
		out[key] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) Subscribe(collection string, onChange func()) func() {
	return s.hub.Subscribe(collection, onChange)
}
