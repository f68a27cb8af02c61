package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Used when SESSION_PROVIDER=memory
// or when Redis is unavailable.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, id)
		return nil, nil
	}
	st := e.state
	st.Statuses = append([]string(nil), e.state.Statuses...)
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, state *State, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{state: *state}
	e.state.Statuses = append([]string(nil), state.Statuses...)
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[state.ID] = e
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
