package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Saver coalesces writes to one durable slot behind a trailing-edge
// timer: every Request re-arms the timer, and only the last snapshot
// within the window is written. Flush writes immediately and is called
// on teardown, so at most one debounce window of mutations can be lost
// on an abrupt crash.
type Saver struct {
	mu       sync.Mutex
	store    Store
	key      string
	delay    time.Duration
	snapshot func() (string, error)
	timer    *time.Timer
	dirty    bool
	logger   *zap.Logger
}

func NewSaver(store Store, key string, delay time.Duration, snapshot func() (string, error), logger *zap.Logger) *Saver {
	return &Saver{
		store:    store,
		key:      key,
		delay:    delay,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Request schedules a save. Saves already pending are coalesced.
func (s *Saver) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.save)
}

// Flush writes any pending snapshot immediately.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.dirty
	s.mu.Unlock()

	if pending {
		s.save()
	}
}

func (s *Saver) save() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	s.mu.Unlock()

	payload, err := s.snapshot()
	if err != nil {
		s.logger.Error("Failed to snapshot state for persistence",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return
	}

	// Persistence failures degrade durability, never correctness.
	if err := s.store.Set(context.Background(), s.key, payload); err != nil {
		s.logger.Warn("Failed to persist state",
			zap.String("key", s.key),
			zap.Error(err),
		)
	}
}
