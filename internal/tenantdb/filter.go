package tenantdb

import (
	"fmt"

	"github.com/google/uuid"
)

// Cond is a caller-supplied query condition. Conditions are expressed as
// column/value maps rather than raw SQL fragments so the injector can inspect
// them for tenant-column references before they reach the database.
type Cond map[string]any

// scopedCondition combines a caller condition with the tenant-match
// predicate for a table. For tenant-scoped tables the result always pins the
// tenant column to the bound identity. A caller condition that names the
// tenant column with a different value is a ScopeConflict, raised before any
// query executes.
func scopedCondition(info TableInfo, tenantID uuid.UUID, cond Cond) (Cond, error) {
	if info.PlatformScoped {
		// Platform tables carry no tenant predicate; the handle mode check
		// happens in table(). Pass the caller condition through unchanged.
		return cond, nil
	}

	if tenantID == uuid.Nil {
		return nil, ErrUnscoped
	}

	combined := make(Cond, len(cond)+1)
	for col, val := range cond {
		if col == info.TenantColumn {
			if !sameTenant(val, tenantID) {
				return nil, fmt.Errorf("%w: table %s, condition %s=%v, bound tenant %s",
					ErrScopeConflict, info.Name, col, val, tenantID)
			}
			continue
		}
		combined[col] = val
	}
	combined[info.TenantColumn] = tenantID
	return combined, nil
}

// scopedChanges validates an update payload. Writing the tenant column to a
// different tenant through Updates would re-home a row, so any tenant-column
// change that does not match the bound identity is a ScopeConflict. A
// matching value is redundant and stripped.
func scopedChanges(info TableInfo, tenantID uuid.UUID, changes map[string]any) (map[string]any, error) {
	if info.PlatformScoped {
		return changes, nil
	}

	val, ok := changes[info.TenantColumn]
	if !ok {
		return changes, nil
	}
	if !sameTenant(val, tenantID) {
		return nil, fmt.Errorf("%w: table %s, update sets %s=%v, bound tenant %s",
			ErrScopeConflict, info.Name, info.TenantColumn, val, tenantID)
	}

	out := make(map[string]any, len(changes)-1)
	for col, v := range changes {
		if col == info.TenantColumn {
			continue
		}
		out[col] = v
	}
	return out, nil
}

// sameTenant compares a condition value against the bound tenant identity,
// accepting the representations callers realistically pass.
func sameTenant(val any, tenantID uuid.UUID) bool {
	switch v := val.(type) {
	case uuid.UUID:
		return v == tenantID
	case *uuid.UUID:
		return v != nil && *v == tenantID
	case string:
		parsed, err := uuid.Parse(v)
		return err == nil && parsed == tenantID
	case []byte:
		parsed, err := uuid.ParseBytes(v)
		return err == nil && parsed == tenantID
	default:
		return false
	}
}
