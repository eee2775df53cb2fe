package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]ButtonState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]ButtonState)}
}

// Load returns the stored state, or the zero state if none.
func (m *MemoryStore) Load(_ context.Context, id string) (ButtonState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[id], nil
}

// Save replaces the stored state.
func (m *MemoryStore) Save(_ context.Context, id string, state ButtonState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = state
	return nil
}

// Lookup reports whether a state is stored for id.
func (m *MemoryStore) Lookup(id string) (ButtonState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[id]
	return s, ok
}

// Delete removes the state for id.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
}
