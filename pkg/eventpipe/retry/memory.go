package retry

import (
	"context"
	"sync"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
)

// MemoryStore keeps the queue document in memory.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   []byte
	saves  int
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errors.ErrStoreClosed
	}
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	m.data = make([]byte, len(data))
	copy(m.data, data)
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
