package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// BillingRepository handles the platform-scoped billing ledger. Entries are
// append-only and span tenants, so the repository requires a root handle.
type BillingRepository struct {
	db *tenantdb.DB
}

// NewBillingRepository creates a new billing repository over a root handle.
func NewBillingRepository(db *tenantdb.DB) (*BillingRepository, error) {
	if !db.IsRoot() {
		return nil, fmt.Errorf("billing repository requires a root handle")
	}
	return &BillingRepository{db: db}, nil
}

// Append adds a ledger entry
func (r *BillingRepository) Append(ctx context.Context, entry *models.BillingLedgerEntry) error {
	if err := r.db.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListByTenant retrieves ledger entries for one tenant, newest first
func (r *BillingRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.BillingLedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.BillingLedgerEntry
	err := r.db.Find(ctx, &entries,
		tenantdb.Cond{"tenant_id": tenantID},
		tenantdb.OrderBy("created_at DESC"),
		tenantdb.Limit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}
