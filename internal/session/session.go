package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scanlane/internal/cache"
	"scanlane/internal/cart"
	"scanlane/internal/catalog"
	"scanlane/internal/config"
	"scanlane/internal/domain"
	"scanlane/internal/scanner"
	"scanlane/internal/storage"
)

var (
	ErrInvalidTender = errors.New("amount tendered is less than the cart total")
	ErrEmptyCart     = errors.New("cart is empty")
)

// Session is the explicit context object owning the cache, ledger, and
// input normalizer for one register session. It replaces module-level
// singletons: one instance per session id, storage partitioned by that
// id so concurrent sessions never share a cart.
type Session struct {
	ID         string
	Normalizer *scanner.Normalizer
	cache      *cache.Lookup
	ledger     *cart.Ledger
	catalog    catalog.Catalog
	store      config.StoreConfig
	now        func() time.Time
	logger     *zap.Logger
}

// New wires one session. The normalizer forwards tokens into the scan
// pipeline; forwarding errors are logged, never propagated upward (the
// normalizer must stay usable).
func New(id string, kv storage.Store, cat catalog.Catalog, cfg *config.Config, logger *zap.Logger) *Session {
	scoped := storage.NewScoped(kv, id)
	log := logger.With(zap.String("session_id", id))

	s := &Session{
		ID:      id,
		catalog: cat,
		store:   cfg.Store,
		now:     time.Now,
		logger:  log,
	}

	s.cache = cache.NewLookup(scoped, cache.Options{
		TTL:          cfg.Cache.TTL,
		MaxSize:      cfg.Cache.MaxSize,
		SaveDebounce: cfg.Cache.SaveDebounce,
	}, log)

	s.ledger = cart.NewLedger(scoped, cfg.Cache.SaveDebounce, log)

	s.Normalizer = scanner.New(func(token string) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Catalog.Timeout)
		defer cancel()
		if _, err := s.ScanAndAdd(ctx, token); err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				log.Info("Scan token matched no product", zap.Int("token_len", len(token)))
				return
			}
			log.Warn("Scan pipeline failed", zap.Error(err))
		}
	}, scanner.Options{
		DebounceWindow: cfg.Scanner.DebounceWindow,
		DedupWindow:    cfg.Scanner.DedupWindow,
		RearmDelay:     cfg.Scanner.RearmDelay,
	}, log)

	return s
}

// Ledger exposes the session's cart.
func (s *Session) Ledger() *cart.Ledger { return s.ledger }

// Cache exposes the session's lookup cache.
func (s *Session) Cache() *cache.Lookup { return s.cache }

// ScanAndAdd resolves a scan token to a product and records it in the
// ledger: cache hit skips the network; a miss goes to the catalog and is
// cached on success. A lookup miss or error leaves the ledger untouched.
func (s *Session) ScanAndAdd(ctx context.Context, token string) (string, error) {
	if product, ok := s.cache.Get(token); ok {
		return s.ledger.AddOrIncrement(product), nil
	}

	product, err := s.catalog.GetByBarcode(ctx, token)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return "", catalog.ErrProductNotFound
		}
		return "", fmt.Errorf("barcode lookup failed: %w", err)
	}

	s.cache.Put(*product)
	return s.ledger.AddOrIncrement(*product), nil
}

// Checkout snapshots the cart into an immutable receipt document and
// clears the ledger. The document is fixed at this point: later cart
// changes cannot affect it.
func (s *Session) Checkout(tendered float64, customer *domain.Customer, points int) (*domain.ReceiptDocument, error) {
	items := s.ledger.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	total := s.ledger.Total()
	if tendered < total {
		return nil, fmt.Errorf("%w: tendered %.2f, total %.2f", ErrInvalidTender, tendered, total)
	}

	receiptItems := make([]domain.ReceiptItem, 0, len(items))
	for _, item := range items {
		receiptItems = append(receiptItems, domain.ReceiptItem{
			Description: item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Product.Price,
			Amount:      item.Amount(),
		})
	}

	doc := &domain.ReceiptDocument{
		Store:          domain.StoreInfo{Name: s.store.Name, Address1: s.store.Address1, Address2: s.store.Address2},
		Customer:       customer,
		Items:          receiptItems,
		CartTotal:      total,
		AmountTendered: tendered,
		Change:         tendered - total,
		LoyaltyPoints:  points,
		Timestamp:      s.now(),
	}

	s.ledger.Clear()
	return doc, nil
}

// Close flushes pending persistence. Called on process teardown so the
// debounce window cannot eat the final mutations.
func (s *Session) Close() {
	s.cache.Flush()
	s.ledger.Flush()
}
