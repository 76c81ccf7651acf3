// Package session holds per-visitor state: the anonymous cart, the UI badge
// counters and staged checkout data. The backing store is a plain key/value
// collaborator so handlers can run against Redis in production and an
// in-memory map in tests.
package session

import (
	"context"
	"strconv"
	"sync"
)

// Store is per-visitor key/value state. Keys are scoped to a session id;
// a missing key reports ok=false, never an error.
type Store interface {
	GetString(ctx context.Context, sid, key string) (value string, ok bool, err error)
	SetString(ctx context.Context, sid, key, value string) error
	GetInt(ctx context.Context, sid, key string) (value int, ok bool, err error)
	SetInt(ctx context.Context, sid, key string, value int) error
	Remove(ctx context.Context, sid, key string) error
}

// Session binds a Store to one visitor's session id.
type Session struct {
	store Store
	id    string
}

func New(store Store, id string) *Session {
	return &Session{store: store, id: id}
}

func (s *Session) ID() string { return s.id }

func (s *Session) GetString(ctx context.Context, key string) (string, bool, error) {
	return s.store.GetString(ctx, s.id, key)
}

func (s *Session) SetString(ctx context.Context, key, value string) error {
	return s.store.SetString(ctx, s.id, key, value)
}

func (s *Session) GetInt(ctx context.Context, key string) (int, bool, error) {
	return s.store.GetInt(ctx, s.id, key)
}

func (s *Session) SetInt(ctx context.Context, key string, value int) error {
	return s.store.SetInt(ctx, s.id, key, value)
}

func (s *Session) Remove(ctx context.Context, key string) error {
	return s.store.Remove(ctx, s.id, key)
}

// MemoryStore is a Store backed by an in-process map. Used in tests and
// single-instance development setups.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) GetString(_ context.Context, sid, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[sid+":"+key]
	return v, ok, nil
}

func (m *MemoryStore) SetString(_ context.Context, sid, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sid+":"+key] = value
	return nil
}

func (m *MemoryStore) GetInt(ctx context.Context, sid, key string) (int, bool, error) {
	v, ok, err := m.GetString(ctx, sid, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

func (m *MemoryStore) SetInt(ctx context.Context, sid, key string, value int) error {
	return m.SetString(ctx, sid, key, strconv.Itoa(value))
}

func (m *MemoryStore) Remove(_ context.Context, sid, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid+":"+key)
	return nil
}
