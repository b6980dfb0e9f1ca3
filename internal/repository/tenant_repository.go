package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// TenantRepository handles the platform-scoped tenant registry. It holds a
// root handle; tenant-facing request paths never construct this repository.
type TenantRepository struct {
	db *tenantdb.DB
}

// NewTenantRepository creates a new tenant repository over a root handle.
func NewTenantRepository(db *tenantdb.DB) (*TenantRepository, error) {
	if !db.IsRoot() {
		return nil, fmt.Errorf("tenant repository requires a root handle")
	}
	return &TenantRepository{db: db}, nil
}

// Create provisions a new tenant
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := r.db.Create(ctx, tenant); err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(ctx, &tenant, tenantdb.Cond{"id": id}); err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

// GetBySlug retrieves a tenant by its slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(ctx, &tenant, tenantdb.Cond{"slug": slug}); err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

// List retrieves all tenants
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	opts := []tenantdb.QueryOpt{tenantdb.OrderBy("created_at ASC")}
	if limit > 0 {
		opts = append(opts, tenantdb.Limit(limit))
	}
	if offset > 0 {
		opts = append(opts, tenantdb.Offset(offset))
	}
	if err := r.db.Find(ctx, &tenants, nil, opts...); err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

// SetSuspended flips a tenant's suspension flag. Tenants are never deleted;
// suspension is the only disable mechanism.
func (r *TenantRepository) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error {
	n, err := r.db.Updates(ctx, &models.Tenant{},
		tenantdb.Cond{"id": id},
		map[string]any{"suspended": suspended},
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant suspension: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tenant %s not found", id)
	}
	return nil
}
