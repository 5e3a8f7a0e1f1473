package session

import (
	"sync"

	"go.uber.org/zap"

	"scanlane/internal/catalog"
	"scanlane/internal/config"
	"scanlane/internal/storage"
)

// Manager hands out one Session per session identifier, creating them
// lazily on first use. The cache and ledger inside each session are
// process-wide singletons for that id; isolation between ids comes from
// the storage key prefix, not separate processes.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	kv      storage.Store
	catalog catalog.Catalog
	cfg     *config.Config
	logger  *zap.Logger
}

func NewManager(kv storage.Store, cat catalog.Catalog, cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		kv:       kv,
		catalog:  cat,
		cfg:      cfg,
		logger:   logger,
	}
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := New(id, m.kv, m.catalog, m.cfg, m.logger)
	m.sessions[id] = s
	return s
}

// CloseAll flushes every live session. Called on graceful shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		s.Close()
	}
}
