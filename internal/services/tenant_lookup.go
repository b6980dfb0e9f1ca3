package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/cache"
	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/repository"
)

// TenantLookup resolves tenants with a short-TTL cache in front of the
// registry. The resolver consults it on every request to re-validate that
// the effective tenant still exists and is not suspended, so the TTL bounds
// how long a suspension can go unnoticed mid-session.
type TenantLookup struct {
	repo  *repository.TenantRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewTenantLookup creates a cached tenant lookup.
func NewTenantLookup(repo *repository.TenantRepository, c cache.Cache, ttl time.Duration) *TenantLookup {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TenantLookup{repo: repo, cache: c, ttl: ttl}
}

// GetByID resolves a tenant, serving from cache when fresh.
func (l *TenantLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	key := cache.TenantKey(id.String())

	if data, err := l.cache.Get(ctx, key); err == nil {
		var tenant models.Tenant
		if err := json.Unmarshal(data, &tenant); err == nil {
			return &tenant, nil
		}
		// Corrupt entry; fall through to the registry.
	}

	tenant, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tenant); err == nil {
		if err := l.cache.Set(ctx, key, data, l.ttl); err != nil {
			log.Warn().Err(err).Str("tenant_id", id.String()).Msg("Failed to cache tenant")
		}
	}
	return tenant, nil
}

// Invalidate drops a tenant from the cache, for suspension and plan changes
// that must take effect before TTL expiry.
func (l *TenantLookup) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := l.cache.Delete(ctx, cache.TenantKey(id.String())); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}
	return nil
}
