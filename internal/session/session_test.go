package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"scanlane/internal/catalog"
	"scanlane/internal/config"
	"scanlane/internal/domain"
	"scanlane/internal/storage"
)

// fakeCatalog counts lookups so cache behavior is observable.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
	lookups  int
	err      error
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	byBarcode := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byBarcode[p.Barcode] = p
	}
	return &fakeCatalog{products: byBarcode}
}

func (f *fakeCatalog) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func (f *fakeCatalog) GetByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[barcode]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) GetByName(_ context.Context, _ string) (*domain.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func (f *fakeCatalog) GetAll(_ context.Context) ([]domain.Product, error) { return nil, nil }

func (f *fakeCatalog) Create(_ context.Context, _ *domain.Product) error { return nil }

func (f *fakeCatalog) Update(_ context.Context, _ *domain.Product) error { return nil }

func (f *fakeCatalog) Delete(_ context.Context, _ string) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Name:     "YZY STORE",
			Address1: "Eastern Slide, Tuding",
		},
		Scanner: config.ScannerConfig{
			DebounceWindow: 10 * time.Millisecond,
			DedupWindow:    50 * time.Millisecond,
			RearmDelay:     time.Millisecond,
		},
		Cache: config.CacheConfig{
			TTL:          30 * time.Minute,
			MaxSize:      1000,
			SaveDebounce: time.Millisecond,
		},
		Catalog: config.CatalogConfig{
			Timeout: time.Second,
		},
	}
}

func coffeeProduct() domain.Product {
	return domain.Product{ID: "p1", Name: "Coffee 3in1", Barcode: "4800016641503", Price: 15.00}
}

func TestScanMissGoesToCatalogThenCaches(t *testing.T) {
	cat := newFakeCatalog(coffeeProduct())
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())
	ctx := context.Background()

	// First scan: cache miss, one catalog round-trip.
	if _, err := s.ScanAndAdd(ctx, "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Lookups() != 1 {
		t.Fatalf("expected 1 lookup, got %d", cat.Lookups())
	}
	if got := s.Ledger().Total(); got != 15.00 {
		t.Errorf("expected total 15.00, got %v", got)
	}

	// Second scan of the same code: cache hit, no second round-trip.
	if _, err := s.ScanAndAdd(ctx, "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Lookups() != 1 {
		t.Errorf("expected cached lookup, got %d catalog calls", cat.Lookups())
	}

	items := s.Ledger().Items()
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected one merged line with quantity 2, got %+v", items)
	}
	if got := s.Ledger().Total(); got != 30.00 {
		t.Errorf("expected total 30.00, got %v", got)
	}
}

func TestScanUnknownBarcodeLeavesLedgerUntouched(t *testing.T) {
	cat := newFakeCatalog()
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())

	_, err := s.ScanAndAdd(context.Background(), "0000000000000")
	if !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if s.Ledger().Len() != 0 {
		t.Error("expected ledger untouched on lookup miss")
	}
}

func TestScanCatalogErrorIsWrapped(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = errors.New("connection refused")
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())

	_, err := s.ScanAndAdd(context.Background(), "4800016641503")
	if err == nil || errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if s.Ledger().Len() != 0 {
		t.Error("expected ledger untouched on lookup error")
	}
}

func TestNormalizerFeedsScanPipeline(t *testing.T) {
	cat := newFakeCatalog(coffeeProduct())
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())

	// Terminator-confirmed scanner input lands in the cart.
	s.Normalizer.TextChanged("4800016641503\n")

	deadline := time.Now().Add(time.Second)
	for s.Ledger().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Ledger().Len() != 1 {
		t.Fatal("expected scan to reach the ledger")
	}
}

func TestNormalizerSurvivesUnknownBarcode(t *testing.T) {
	cat := newFakeCatalog(coffeeProduct())
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())

	// An unknown code is logged and swallowed; the next scan still works.
	s.Normalizer.TextChanged("9999999999999\n")
	time.Sleep(20 * time.Millisecond)
	s.Normalizer.TextChanged("4800016641503\n")

	deadline := time.Now().Add(time.Second)
	for s.Ledger().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Ledger().Len() != 1 {
		t.Fatal("expected pipeline usable after a failed lookup")
	}
}

func TestCheckoutSnapshotsAndClears(t *testing.T) {
	cat := newFakeCatalog(coffeeProduct())
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())
	ctx := context.Background()

	if _, err := s.ScanAndAdd(ctx, "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.ScanAndAdd(ctx, "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := s.Checkout(100, &domain.Customer{Name: "Juan"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.CartTotal != 30.00 || doc.AmountTendered != 100 || doc.Change != 70.00 {
		t.Errorf("unexpected money fields: %+v", doc)
	}
	if len(doc.Items) != 1 || doc.Items[0].Quantity != 2 || doc.Items[0].Amount != 30.00 {
		t.Errorf("unexpected items: %+v", doc.Items)
	}
	if doc.Store.Name != "YZY STORE" {
		t.Errorf("expected store header, got %+v", doc.Store)
	}
	if s.Ledger().Len() != 0 {
		t.Error("expected ledger cleared after checkout")
	}

	// The snapshot is immutable: later cart activity cannot touch it.
	if _, err := s.ScanAndAdd(ctx, "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.CartTotal != 30.00 || len(doc.Items) != 1 {
		t.Error("expected receipt document unaffected by later scans")
	}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	s := New("reg-1", storage.NewMemory(), newFakeCatalog(), testConfig(), zap.NewNop())

	if _, err := s.Checkout(100, nil, 0); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutRejectsInsufficientTender(t *testing.T) {
	cat := newFakeCatalog(coffeeProduct())
	s := New("reg-1", storage.NewMemory(), cat, testConfig(), zap.NewNop())

	if _, err := s.ScanAndAdd(context.Background(), "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Checkout(10, nil, 0); !errors.Is(err, ErrInvalidTender) {
		t.Errorf("expected ErrInvalidTender, got %v", err)
	}
	if s.Ledger().Len() != 1 {
		t.Error("expected cart kept after rejected checkout")
	}
}

func TestSessionsAreStorageIsolated(t *testing.T) {
	kv := storage.NewMemory()
	cat := newFakeCatalog(coffeeProduct())
	cfg := testConfig()
	logger := zap.NewNop()
	ctx := context.Background()

	a := New("reg-a", kv, cat, cfg, logger)
	b := New("reg-b", kv, cat, cfg, logger)

	if _, err := a.ScanAndAdd(ctx, "4800016641503"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Ledger().Len() != 0 {
		t.Error("expected register b's cart isolated from register a")
	}

	// Flushed state restores only into the matching session id.
	a.Close()
	restoredA := New("reg-a", kv, cat, cfg, logger)
	restoredB := New("reg-b", kv, cat, cfg, logger)
	if restoredA.Ledger().Len() != 1 {
		t.Error("expected register a's cart restored")
	}
	if restoredB.Ledger().Len() != 0 {
		t.Error("expected register b still empty after restore")
	}
}

func TestManagerReusesSessions(t *testing.T) {
	m := NewManager(storage.NewMemory(), newFakeCatalog(coffeeProduct()), testConfig(), zap.NewNop())

	first := m.Get("reg-1")
	second := m.Get("reg-1")
	other := m.Get("reg-2")

	if first != second {
		t.Error("expected the same session instance per id")
	}
	if first == other {
		t.Error("expected distinct sessions per id")
	}

	m.CloseAll()
}
