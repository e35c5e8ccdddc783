package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/juju/clock/testclock"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/gatekeeper"
)

var (
	_ gatekeeper.Cache = (*Memory)(nil)
	_ gatekeeper.Cache = (*Redis)(nil)
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	if _, ok := c.Get(ctx, "roles"); ok {
		t.Fatal("expected cache miss")
	}

	c.Set(ctx, "roles", []byte(`[{"id":"role_1"}]`), 0)
	got, ok := c.Get(ctx, "roles")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != `[{"id":"role_1"}]` {
		t.Fatalf("unexpected value %s", got)
	}

	// Callers must not be able to mutate stored values.
	got[0] = 'x'
	again, _ := c.Get(ctx, "roles")
	if again[0] != '[' {
		t.Fatal("stored value was mutated through a returned slice")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Now())
	c := NewMemory(WithClock(clk))

	c.Set(ctx, "perms", []byte("[]"), time.Minute)
	clk.Advance(59 * time.Second)
	if _, ok := c.Get(ctx, "perms"); !ok {
		t.Fatal("expected hit before expiry")
	}
	clk.Advance(2 * time.Second)
	if _, ok := c.Get(ctx, "perms"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Fatal("expired entry should be dropped on read")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "gatekeeper:snapshot:roles", []byte("[]"), 0)
	c.Set(ctx, "gatekeeper:snapshot:users", []byte("[]"), 0)
	c.Set(ctx, "other", []byte("[]"), 0)

	c.Delete(ctx, "gatekeeper:snapshot:roles")
	if _, ok := c.Get(ctx, "gatekeeper:snapshot:roles"); ok {
		t.Fatal("expected miss after delete")
	}
	c.DeletePrefix(ctx, "gatekeeper:snapshot:")
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Len())
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Now())
	c := NewMemory(WithMaxSize(2), WithClock(clk))

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), 2*time.Minute)
	c.Set(ctx, "c", []byte("3"), 3*time.Minute)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("entry closest to expiry should be evicted")
	}
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedis(client, WithPrefix("test:"))
	if err := c.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(ctx, "roles"); ok {
		t.Fatal("expected cache miss")
	}
	c.Set(ctx, "roles", []byte(`[]`), time.Minute)
	if got, ok := c.Get(ctx, "roles"); !ok || string(got) != "[]" {
		t.Fatalf("expected hit, got %q %v", got, ok)
	}
	if !mr.Exists("test:roles") {
		t.Fatal("key should be namespaced")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, "roles"); ok {
		t.Fatal("expected miss after TTL expiry")
	}

	c.Set(ctx, "users", []byte(`[]`), 0)
	c.Delete(ctx, "users")
	if _, ok := c.Get(ctx, "users"); ok {
		t.Fatal("expected miss after delete")
	}
}
