package repository

import (
	"context"
	"fmt"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// AuditRepository handles audit log database operations. Entries are
// append-only; there is deliberately no update or delete.
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, db *tenantdb.DB, entry *models.AuditLog) error {
	if err := db.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// List retrieves audit logs for the bound tenant
func (r *AuditRepository) List(ctx context.Context, db *tenantdb.DB, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	opts := []tenantdb.QueryOpt{tenantdb.OrderBy("created_at DESC")}
	if limit > 0 {
		opts = append(opts, tenantdb.Limit(limit))
	}
	if offset > 0 {
		opts = append(opts, tenantdb.Offset(offset))
	}
	if err := db.Find(ctx, &logs, nil, opts...); err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}

// ListByResource retrieves audit logs for a specific resource
func (r *AuditRepository) ListByResource(ctx context.Context, db *tenantdb.DB, resource string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Find(ctx, &logs,
		tenantdb.Cond{"resource": resource},
		tenantdb.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}
