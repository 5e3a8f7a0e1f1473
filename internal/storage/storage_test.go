package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := m.Set(ctx, "cart", `[{"id":"a"}]`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := m.Get(ctx, "cart")
	if err != nil || !ok || got != `[{"id":"a"}]` {
		t.Errorf("Get = (%q, %v, %v)", got, ok, err)
	}

	if err := m.Remove(ctx, "cart"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "cart"); ok {
		t.Error("expected miss after remove")
	}

	// Removing an absent key is not an error.
	if err := m.Remove(ctx, "cart"); err != nil {
		t.Errorf("unexpected error removing absent key: %v", err)
	}
}

func TestScopedPartitionsByPrefix(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()

	a := NewScoped(inner, "reg-a")
	b := NewScoped(inner, "reg-b")

	if err := a.Set(ctx, "cart", "a-cart"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Set(ctx, "cart", "b-cart"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _, _ := a.Get(ctx, "cart"); got != "a-cart" {
		t.Errorf("scope a read %q", got)
	}
	if got, _, _ := b.Get(ctx, "cart"); got != "b-cart" {
		t.Errorf("scope b read %q", got)
	}

	// The raw key carries the session prefix.
	if _, ok, _ := inner.Get(ctx, "reg-a:cart"); !ok {
		t.Error("expected prefixed key in the inner store")
	}

	if err := a.Remove(ctx, "cart"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "cart"); !ok {
		t.Error("expected scope b untouched by scope a's remove")
	}
}

func TestSaverCoalescesBursts(t *testing.T) {
	var mu sync.Mutex
	writes := 0
	m := NewMemory()

	s := NewSaver(m, "slot", 20*time.Millisecond, func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		writes++
		return "snapshot", nil
	}, zap.NewNop())

	for i := 0; i < 10; i++ {
		s.Request()
	}

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	got := writes
	mu.Unlock()
	if got != 1 {
		t.Errorf("expected one coalesced write, got %d", got)
	}
	if v, ok, _ := m.Get(context.Background(), "slot"); !ok || v != "snapshot" {
		t.Errorf("expected snapshot persisted, got (%q, %v)", v, ok)
	}
}

func TestSaverFlushWritesImmediately(t *testing.T) {
	m := NewMemory()
	s := NewSaver(m, "slot", time.Hour, func() (string, error) { return "now", nil }, zap.NewNop())

	s.Request()
	s.Flush()

	if v, ok, _ := m.Get(context.Background(), "slot"); !ok || v != "now" {
		t.Errorf("expected immediate write on flush, got (%q, %v)", v, ok)
	}
}

func TestSaverFlushWithoutPendingIsNoop(t *testing.T) {
	m := NewMemory()
	calls := 0
	s := NewSaver(m, "slot", time.Hour, func() (string, error) { calls++; return "", nil }, zap.NewNop())

	s.Flush()
	if calls != 0 {
		t.Errorf("expected no snapshot without a pending request, got %d", calls)
	}
}
