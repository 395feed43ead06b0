package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries for the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	Stats   Stats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		m.Stats.Hit()
	} else {
		m.Stats.Miss()
	}
	return data, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	m.Stats.Set()
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
