package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct{}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{}
}

// Create creates a new invoice
func (r *InvoiceRepository) Create(ctx context.Context, db *tenantdb.DB, invoice *models.Invoice) error {
	if err := db.Create(ctx, invoice); err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, db *tenantdb.DB, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := db.First(ctx, &invoice, tenantdb.Cond{"id": id}); err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

// ListByStatus retrieves invoices filtered by status
func (r *InvoiceRepository) ListByStatus(ctx context.Context, db *tenantdb.DB, status string, limit, offset int) ([]models.Invoice, error) {
	cond := tenantdb.Cond{}
	if status != "" {
		cond["status"] = status
	}

	var invoices []models.Invoice
	opts := []tenantdb.QueryOpt{tenantdb.OrderBy("issued_at DESC")}
	if limit > 0 {
		opts = append(opts, tenantdb.Limit(limit))
	}
	if offset > 0 {
		opts = append(opts, tenantdb.Offset(offset))
	}
	if err := db.Find(ctx, &invoices, cond, opts...); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// MarkPaid transitions an invoice to paid and records the audit entry in the
// same transaction; a failure in either leaves the invoice untouched.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, db *tenantdb.DB, id uuid.UUID, actorID uuid.UUID) error {
	return db.Transaction(ctx, func(tx *tenantdb.DB) error {
		now := time.Now().UTC()
		n, err := tx.Updates(ctx, &models.Invoice{},
			tenantdb.Cond{"id": id, "status": models.InvoiceSent},
			map[string]any{"status": models.InvoicePaid, "paid_at": now},
		)
		if err != nil {
			return fmt.Errorf("failed to mark invoice paid: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("invoice %s not found or not in sent status", id)
		}

		entry := &models.AuditLog{
			ActorID:  actorID,
			Action:   "invoice.paid",
			Resource: "invoice:" + id.String(),
		}
		if err := tx.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
		return nil
	})
}
