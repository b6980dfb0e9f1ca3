package tenantdb

import "errors"

// Isolation and authorization errors. Handlers map these at the HTTP
// boundary; nothing above this layer may swallow them.
var (
	// ErrUnscoped is returned when an operation has no bound tenant and the
	// handle is not in root mode. Always a programming defect.
	ErrUnscoped = errors.New("tenantdb: operation without a bound tenant")

	// ErrScopeConflict is returned when a caller condition or record names a
	// tenant other than the bound one. Raised immediately instead of letting
	// two contradictory predicates AND down to zero rows and mask the bug.
	ErrScopeConflict = errors.New("tenantdb: condition conflicts with bound tenant")

	// ErrUnauthorized is returned when a caller attempts to act as a tenant
	// it is not entitled to.
	ErrUnauthorized = errors.New("tenantdb: not authorized for tenant")

	// ErrTenantSuspended is returned when the effective tenant is suspended
	// and the operation is not suspension-exempt.
	ErrTenantSuspended = errors.New("tenantdb: tenant is suspended")

	// ErrRootRequired is returned when a tenant-bound handle touches a
	// platform-scoped table.
	ErrRootRequired = errors.New("tenantdb: platform table requires a root handle")

	// ErrNotRegistered is returned for tables unknown to the registry.
	ErrNotRegistered = errors.New("tenantdb: table not registered")
)
