package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if err := r.Ping(ctx); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	if _, ok, err := r.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := r.Set(ctx, "cache:products", `[]`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := r.Get(ctx, "cache:products")
	if err != nil || !ok || got != `[]` {
		t.Errorf("Get = (%q, %v, %v)", got, ok, err)
	}

	if err := r.Remove(ctx, "cache:products"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := r.Get(ctx, "cache:products"); ok {
		t.Error("expected miss after remove")
	}
}

func TestRedisScopedSessions(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	a := NewScoped(r, "reg-a")
	b := NewScoped(r, "reg-b")

	if err := a.Set(ctx, "cart", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "cart"); ok {
		t.Error("expected session scopes isolated over redis")
	}
}
