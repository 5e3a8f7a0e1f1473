package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable reports that the backing store could not be reached.
// Callers that only use the store for durability are expected to log it
// and carry on in memory.
var ErrUnavailable = errors.New("storage unavailable")

// Store is the durable key/value collaborator shared by the lookup cache,
// the cart ledger, and the print preview channel.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Memory is an in-process Store used in tests and as a degraded fallback
// when no redis is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Scoped prefixes every key with a session identifier so two concurrently
// open sessions never observe each other's state.
type Scoped struct {
	inner  Store
	prefix string
}

func NewScoped(inner Store, sessionID string) *Scoped {
	return &Scoped{inner: inner, prefix: sessionID + ":"}
}

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *Scoped) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}
