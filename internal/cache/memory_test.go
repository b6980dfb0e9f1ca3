package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	key := TenantKey("t-1")
	if err := c.Set(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("got %q, want payload", got)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	if _, err := c.Get(ctx, "absent"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("got %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("got %v, want ErrCacheMiss after expiry", err)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	key := TenantKey("t-1")
	if err := c.Set(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("got %v, want ErrCacheMiss after delete", err)
	}

	// Deleting an absent key is a no-op.
	if err := c.Delete(ctx, "absent"); err != nil {
		t.Errorf("delete of absent key failed: %v", err)
	}
}

func TestMemoryCacheClearTenantPattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	if err := c.Set(ctx, EntityKey("t-1", "customer", "c-1"), []byte("a"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := c.Set(ctx, EntityKey("t-2", "customer", "c-1"), []byte("b"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := c.Clear(ctx, TenantPattern("t-1")); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, err := c.Get(ctx, EntityKey("t-1", "customer", "c-1")); !errors.Is(err, ErrCacheMiss) {
		t.Error("t-1 entry should be cleared")
	}
	if _, err := c.Get(ctx, EntityKey("t-2", "customer", "c-1")); err != nil {
		t.Error("t-2 entry should survive")
	}
}

// Entries for the same entity id under different tenants must be distinct
// keys; the tenant prefix is what keeps the cache from becoming an
// isolation bypass.
func TestEntityKeysAreTenantDistinct(t *testing.T) {
	if EntityKey("t-1", "customer", "c-1") == EntityKey("t-2", "customer", "c-1") {
		t.Error("entity keys collide across tenants")
	}
}
