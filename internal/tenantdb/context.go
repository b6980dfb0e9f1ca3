package tenantdb

import (
	"context"

	"github.com/google/uuid"
)

// Scope is the resolved tenant context for one request: who is acting, which
// tenant their operations are constrained to, and whether that binding comes
// from an impersonation override. Scope is carried explicitly through the
// request context; there is no process-wide "current tenant".
type Scope struct {
	UserID        uuid.UUID
	TenantID      uuid.UUID
	Suspended     bool
	Impersonating bool
	CorrelationID string
}

type scopeKey struct{}
type handleKey struct{}

// WithScope stores the resolved scope in the request context.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext retrieves the resolved scope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// WithDB stores the request's scoped handle in the context.
func WithDB(ctx context.Context, db *DB) context.Context {
	return context.WithValue(ctx, handleKey{}, db)
}

// FromContext retrieves the request's scoped handle. Handlers must obtain
// their handle here, never construct one from raw session fields.
func FromContext(ctx context.Context) (*DB, bool) {
	db, ok := ctx.Value(handleKey{}).(*DB)
	return db, ok
}
