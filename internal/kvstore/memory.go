package kvstore

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is an in-process Store. Failures can be injected per operation
// to exercise degraded-storage paths.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	failures map[string]error
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), failures: make(map[string]error)}
}

// FailOn makes every subsequent call of op ("get", "set", "remove") return err.
// A nil err clears the failure.
func (m *MemoryStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Snapshot returns a copy of the stored entries.
func (m *MemoryStore) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["get"]; err != nil {
		return nil, storageErr(err, "get", key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["set"]; err != nil {
		return storageErr(err, "set", key)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["remove"]; err != nil {
		return storageErr(err, "remove", key)
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
