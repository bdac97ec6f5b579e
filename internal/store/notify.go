package store

import "sync"

// NotifyHub fans change notifications out to per-collection subscribers.
// Both store implementations embed one; callbacks run synchronously after
// the mutation commits, in registration order.
type NotifyHub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func()
}

func NewNotifyHub() *NotifyHub {
	return &NotifyHub{subs: make(map[string]map[int]func())}
}

func (h *NotifyHub) Subscribe(collection string, onChange func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]func())
	}
	id := h.next
	h.next++
	h.subs[collection][id] = onChange
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[collection], id)
	}
}

func (h *NotifyHub) Notify(collection string) {
	h.mu.Lock()
	callbacks := make([]func(), 0, len(h.subs[collection]))
	for _, cb := range h.subs[collection] {
		callbacks = append(callbacks, cb)
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}
