package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// CustomerRepository handles customer database operations. All methods take
// the request's scoped handle; the repository itself holds no state.
type CustomerRepository struct{}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{}
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, db *tenantdb.DB, customer *models.Customer) error {
	if err := db.Create(ctx, customer); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, db *tenantdb.DB, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := db.First(ctx, &customer, tenantdb.Cond{"id": id}); err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// List retrieves customers for the bound tenant
func (r *CustomerRepository) List(ctx context.Context, db *tenantdb.DB, limit, offset int) ([]models.Customer, error) {
	var customers []models.Customer
	opts := []tenantdb.QueryOpt{tenantdb.OrderBy("created_at DESC")}
	if limit > 0 {
		opts = append(opts, tenantdb.Limit(limit))
	}
	if offset > 0 {
		opts = append(opts, tenantdb.Offset(offset))
	}
	if err := db.Find(ctx, &customers, nil, opts...); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// Update applies changes to a customer
func (r *CustomerRepository) Update(ctx context.Context, db *tenantdb.DB, id uuid.UUID, changes map[string]any) error {
	n, err := db.Updates(ctx, &models.Customer{}, tenantdb.Cond{"id": id}, changes)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer %s not found", id)
	}
	return nil
}

// Delete removes a customer
func (r *CustomerRepository) Delete(ctx context.Context, db *tenantdb.DB, id uuid.UUID) error {
	if _, err := db.Delete(ctx, &models.Customer{}, tenantdb.Cond{"id": id}); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

// AddLoyaltyPoints credits points to a customer and records the audit entry
// in the same transaction.
func (r *CustomerRepository) AddLoyaltyPoints(ctx context.Context, db *tenantdb.DB, id uuid.UUID, actorID uuid.UUID, points int64) error {
	return db.Transaction(ctx, func(tx *tenantdb.DB) error {
		var customer models.Customer
		if err := tx.First(ctx, &customer, tenantdb.Cond{"id": id}); err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}

		n, err := tx.Updates(ctx, &models.Customer{},
			tenantdb.Cond{"id": id},
			map[string]any{"loyalty_points": customer.LoyaltyPoints + points},
		)
		if err != nil {
			return fmt.Errorf("failed to update loyalty points: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("customer %s not found", id)
		}

		entry := &models.AuditLog{
			ActorID:  actorID,
			Action:   "loyalty.credit",
			Resource: "customer:" + id.String(),
			Detail:   fmt.Sprintf("credited %d points", points),
		}
		if err := tx.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
		return nil
	})
}
