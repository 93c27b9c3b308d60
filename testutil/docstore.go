package testutil

import (
	"context"
	"errors"
	"sync"
)

// MemDocStore is an in-memory document store for tests. It satisfies the
// quote.DocumentStore interface and supports failure injection.
type MemDocStore struct {
	mu   sync.Mutex
	docs map[string][]byte

	// FailGets / FailPuts make the next N calls fail, to exercise retry
	// and store-unavailable paths.
	FailGets int
	FailPuts int
}

// NewMemDocStore returns an empty store.
func NewMemDocStore() *MemDocStore {
	return &MemDocStore{docs: make(map[string][]byte)}
}

// ErrInjected is returned by injected failures.
var ErrInjected = errors.New("injected store failure")

func (m *MemDocStore) Get(_ context.Context, location string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGets > 0 {
		m.FailGets--
		return nil, ErrInjected
	}
	body, ok := m.docs[location]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (m *MemDocStore) Put(_ context.Context, location string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts > 0 {
		m.FailPuts--
		return ErrInjected
	}
	stored := make([]byte, len(body))
	copy(stored, body)
	m.docs[location] = stored
	return nil
}
