package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps flags in process memory. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	flags     Flags
	updatedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (Flags, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := Flags{}
	for k, v := range m.sessions[sessionID].flags {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, flags Flags) error {
	if len(flags) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		e.flags = Flags{}
	}
	for k, v := range flags {
		e.flags[k] = v
	}
	e.updatedAt = m.now()
	m.sessions[sessionID] = e
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, e := range m.sessions {
		if e.updatedAt.Before(before) {
			n += int64(len(e.flags))
			delete(m.sessions, id)
		}
	}
	return n, nil
}
