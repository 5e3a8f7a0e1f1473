package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scanlane/internal/domain"
	"scanlane/internal/storage"
)

const (
	storageKey = "cart"

	// DefaultSaveDebounce matches the cache's persistence window.
	DefaultSaveDebounce = 500 * time.Millisecond
)

// Ledger is the authoritative record of what is in this sale. Items are
// ordered most-recently-added first. All mutation happens under one
// mutex, so the find-existing-or-create decision in AddOrIncrement can
// never interleave with another scan.
type Ledger struct {
	mu     sync.Mutex
	items  []domain.CartItem
	saver  *storage.Saver
	logger *zap.Logger
}

// NewLedger builds a ledger and restores any persisted cart for this
// session's storage scope.
func NewLedger(store storage.Store, saveDebounce time.Duration, logger *zap.Logger) *Ledger {
	if saveDebounce <= 0 {
		saveDebounce = DefaultSaveDebounce
	}

	l := &Ledger{logger: logger}
	l.saver = storage.NewSaver(store, storageKey, saveDebounce, l.marshal, logger)
	l.load(store)
	return l
}

// AddOrIncrement merges by product identity: a second scan of the same
// product bumps the existing line's quantity instead of adding a new
// line. New items are prepended with quantity 1. Returns the id of the
// affected item.
func (l *Ledger) AddOrIncrement(p domain.Product) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].Product.SameIdentity(p) {
			l.items[i].Quantity++
			l.saver.Request()
			return l.items[i].ID
		}
	}

	item := domain.CartItem{
		ID:       uuid.New().String(),
		Product:  p,
		Quantity: 1,
	}
	l.items = append([]domain.CartItem{item}, l.items...)
	l.saver.Request()
	return item.ID
}

// SetQuantity clamps to max(0, floor(qty)); NaN and infinities coerce to
// zero. Quantity 0 is a valid state, the line is not removed. Unknown
// ids are a no-op.
func (l *Ledger) SetQuantity(itemID string, qty float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID == itemID {
			l.items[i].Quantity = clampQuantity(qty)
			l.saver.Request()
			return
		}
	}
}

// SetPrice overrides the snapshot price for one line only; the catalog
// record is untouched. Non-finite input coerces to 0.
func (l *Ledger) SetPrice(itemID string, price float64) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		price = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID == itemID {
			l.items[i].Product.Price = price
			l.saver.Request()
			return
		}
	}
}

// Remove deletes the line with the given id, if present.
func (l *Ledger) Remove(itemID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID == itemID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.saver.Request()
			return
		}
	}
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
	l.saver.Request()
}

// Items returns a copy of the lines, most-recently-added first.
func (l *Ledger) Items() []domain.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.CartItem, len(l.items))
	copy(out, l.items)
	return out
}

// Total is recomputed on demand from the current (possibly overridden)
// prices; it is never cached.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total float64
	for _, item := range l.items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}

// Len reports the number of lines.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Flush forces any pending persistence write. Called on teardown.
func (l *Ledger) Flush() {
	l.saver.Flush()
}

func clampQuantity(qty float64) int {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 0
	}
	q := math.Floor(qty)
	if q < 0 {
		return 0
	}
	return int(q)
}

func (l *Ledger) marshal() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(l.items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cart: %w", err)
	}
	return string(data), nil
}

func (l *Ledger) load(store storage.Store) {
	raw, ok, err := store.Get(context.Background(), storageKey)
	if err != nil {
		l.logger.Warn("Failed to load persisted cart, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		l.logger.Warn("Failed to decode persisted cart, starting empty", zap.Error(err))
		return
	}
	l.items = items
}
