package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache is the lookup cache in front of the tenant registry. The surface is
// deliberately small: resolvers read with Get, writers refresh with Set, and
// suspension or plan changes invalidate with Delete or Clear.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
}

// TenantKey builds a cache key for a platform-level tenant record.
func TenantKey(tenantID string) string {
	return "tenant:" + tenantID
}

// EntityKey builds a cache key for a tenant-owned entity. Keys always lead
// with the tenant identity so a cache can never serve one tenant's entry to
// another.
func EntityKey(tenantID, entity, id string) string {
	return tenantID + ":" + entity + ":" + id
}

// TenantPattern matches every cached entry for a tenant, for invalidation
// on suspension or plan changes.
func TenantPattern(tenantID string) string {
	return tenantID + ":*"
}
