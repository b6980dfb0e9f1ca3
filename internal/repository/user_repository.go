package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// UserRepository handles the platform-scoped user directory. Users are
// looked up during authentication, before any tenant is resolved, so the
// table is reachable only through a root handle.
type UserRepository struct {
	db *tenantdb.DB
}

// NewUserRepository creates a new user repository over a root handle.
func NewUserRepository(db *tenantdb.DB) (*UserRepository, error) {
	if !db.IsRoot() {
		return nil, fmt.Errorf("user repository requires a root handle")
	}
	return &UserRepository{db: db}, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.First(ctx, &user, tenantdb.Cond{"id": id}); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(ctx, &user, tenantdb.Cond{"email": email}); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
