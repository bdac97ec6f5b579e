// Package memory is the in-process store backend, used by tests and as the
// default dev backend when no SQLite path is configured.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"caixa/internal/store"
)

type Store struct {
	mu   sync.Mutex
	data map[string]map[string]store.Doc
	hub  *store.NotifyHub
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		data: make(map[string]map[string]store.Doc),
		hub:  store.NewNotifyHub(),
	}
}

func (s *Store) ReadDocument(_ context.Context, collection, key string) (store.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.data[collection][key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *Store) WriteDocument(_ context.Context, collection, key string, doc store.Doc) error {
	s.mu.Lock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]store.Doc)
	}
	s.data[collection][key] = cloneDoc(doc)
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

func (s *Store) WriteBatch(_ context.Context, collection string, docs map[string]store.Doc) error {
	s.mu.Lock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]store.Doc)
	}
	for key, doc := range docs {
		s.data[collection][key] = cloneDoc(doc)
	}
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, collection, key string) error {
	s.mu.Lock()
	delete(s.data[collection], key)
	s.mu.Unlock()

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

func (s *Store) List(_ context.Context, collection string) (map[string]store.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]store.Doc, len(s.data[collection]))
	for key, doc := range s.data[collection] {
		out[key] = cloneDoc(doc)
	}
	return out, nil
}

func (s *Store) Subscribe(collection string, onChange func()) func() {
	return s.hub.Subscribe(collection, onChange)
}

func (s *Store) Close() error { return nil }

func cloneDoc(doc store.Doc) store.Doc {
	out := make(store.Doc, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
