package storage

import "sync"

// MemoryPath is the storage path that selects a MemoryStore: nothing is
// written to disk and the registry starts from the built-ins every run.
const MemoryPath = "memory"

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]string
	writes int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

// GetItem returns the value stored under key.
func (m *MemoryStore) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (m *MemoryStore) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.writes++
	return nil
}

// RemoveItem deletes key.
func (m *MemoryStore) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; ok {
		delete(m.items, key)
		m.writes++
	}
	return nil
}

// Writes returns how many mutating calls changed the store.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
