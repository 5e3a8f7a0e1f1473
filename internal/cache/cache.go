package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"scanlane/internal/domain"
	"scanlane/internal/storage"
)

const (
	// DefaultTTL is how long a cached product may be served before it is
	// treated as stale and purged on touch.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxSize bounds the number of cached barcodes. Eviction is by
	// insertion order: the oldest-inserted entry goes first, not the
	// least-recently-read one.
	DefaultMaxSize = 1000

	// DefaultSaveDebounce is the coalescing window for persistence.
	DefaultSaveDebounce = 500 * time.Millisecond

	storageKey = "cache:products"
)

type entry struct {
	Product    domain.Product `json:"product"`
	InsertedAt time.Time      `json:"inserted_at"`
}

// Options tunes a Lookup cache. Zero values fall back to the defaults
// above. Now is injectable for expiry tests.
type Options struct {
	TTL          time.Duration
	MaxSize      int
	SaveDebounce time.Duration
	Now          func() time.Time
}

// Lookup caches barcode -> product so repeated scans during a shift skip
// the network round-trip. Entries are owned exclusively by the cache;
// callers always receive copies.
type Lookup struct {
	mu      sync.Mutex
	entries map[string]entry
	order   []string // barcodes in insertion order, oldest first
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	saver   *storage.Saver
	logger  *zap.Logger
}

// NewLookup builds a cache and loads any previously persisted contents
// from the store. Load happens once, here; later mutations are persisted
// behind the saver's debounce window.
func NewLookup(store storage.Store, opts Options, logger *zap.Logger) *Lookup {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = DefaultSaveDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Lookup{
		entries: make(map[string]entry),
		ttl:     opts.TTL,
		maxSize: opts.MaxSize,
		now:     opts.Now,
		logger:  logger,
	}
	c.saver = storage.NewSaver(store, storageKey, opts.SaveDebounce, c.marshal, logger)
	c.load(store)
	return c
}

// Get returns a copy of the cached product for barcode. An entry older
// than the TTL is purged on touch and reported as a miss; it is never
// resurrected.
func (c *Lookup) Get(barcode string) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[barcode]
	if !ok {
		return domain.Product{}, false
	}
	if c.now().Sub(e.InsertedAt) > c.ttl {
		c.removeLocked(barcode)
		c.saver.Request()
		return domain.Product{}, false
	}
	return e.Product, true
}

// Put caches a product under its barcode. Products without a barcode are
// ignored. At capacity the oldest-inserted entry is evicted first.
func (c *Lookup) Put(p domain.Product) {
	if p.Barcode == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[p.Barcode]; exists {
		c.removeLocked(p.Barcode)
	}
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[p.Barcode] = entry{Product: p, InsertedAt: c.now()}
	c.order = append(c.order, p.Barcode)
	c.saver.Request()
}

// InvalidateBarcode removes the entry stored under barcode, if any.
func (c *Lookup) InvalidateBarcode(barcode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[barcode]; ok {
		c.removeLocked(barcode)
		c.saver.Request()
	}
}

// InvalidateID removes every entry whose product carries the given
// catalog ID. A full scan: invalidation by ID is rare (product edits).
func (c *Lookup) InvalidateID(id string) {
	if id == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	for barcode, e := range c.entries {
		if e.Product.ID == id {
			c.removeLocked(barcode)
			removed = true
		}
	}
	if removed {
		c.saver.Request()
	}
}

// Len reports the current number of cached entries.
func (c *Lookup) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush forces any pending persistence write. Called on teardown.
func (c *Lookup) Flush() {
	c.saver.Flush()
}

func (c *Lookup) removeLocked(barcode string) {
	delete(c.entries, barcode)
	for i, b := range c.order {
		if b == barcode {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Lookup) marshal() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]entry, 0, len(c.order))
	for _, barcode := range c.order {
		snapshot = append(snapshot, c.entries[barcode])
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache contents: %w", err)
	}
	return string(data), nil
}

func (c *Lookup) load(store storage.Store) {
	raw, ok, err := store.Get(context.Background(), storageKey)
	if err != nil {
		c.logger.Warn("Failed to load persisted cache, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var snapshot []entry
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		c.logger.Warn("Failed to decode persisted cache, starting empty", zap.Error(err))
		return
	}

	now := c.now()
	for _, e := range snapshot {
		if e.Product.Barcode == "" || now.Sub(e.InsertedAt) > c.ttl {
			continue
		}
		if len(c.entries) >= c.maxSize {
			break
		}
		if _, dup := c.entries[e.Product.Barcode]; dup {
			continue
		}
		c.entries[e.Product.Barcode] = e
		c.order = append(c.order, e.Product.Barcode)
	}
}
