package store

import (
	"context"
	"errors"
	"sync"
)

// Fixed storage keys, one per persisted collection.
const (
	KeyUsers       = "paytask_users"
	KeyTasks       = "paytask_tasks"
	KeyRatings     = "paytask_ratings"
	KeyPayments    = "paytask_payments"
	KeyCurrentUser = "paytask_current_user"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("snapshot not found")

// KV is a durable key-value store holding whole-collection snapshots.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemoryStore keeps snapshots in a map. Used by tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

var _ KV = (*MemoryStore)(nil)

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
