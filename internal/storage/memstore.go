package storage

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Adapter.
var _ Adapter = (*MemStore)(nil)

// MemStore implements Adapter using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu         sync.RWMutex
	categories map[string]map[string][]byte
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		categories: make(map[string]map[string][]byte),
	}
}

// Put stores a copy of value so callers may reuse their buffer.
func (m *MemStore) Put(_ context.Context, category, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.categories[category]
	if !ok {
		bucket = make(map[string][]byte)
		m.categories[category] = bucket
	}
	bucket[key] = cloneBytes(value)
	return nil
}

// Get returns a copy of the stored value, or nil if not found.
func (m *MemStore) Get(_ context.Context, category, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.categories[category][key]
	if !ok {
		return nil, nil
	}
	return cloneBytes(v), nil
}

// GetAll returns copies of all entries in category, sorted by key.
func (m *MemStore) GetAll(_ context.Context, category string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.categories[category]
	out := make([]Entry, 0, len(bucket))
	for k, v := range bucket {
		out = append(out, Entry{Key: k, Value: cloneBytes(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Len returns the number of keys stored in category.
func (m *MemStore) Len(category string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.categories[category])
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
