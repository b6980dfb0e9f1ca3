// Package tenantdb is the only sanctioned entry point for persistence inside
// a request. A DB is bound to exactly one tenant for the request's lifetime;
// every operation routes its condition through the filter injector so a
// caller can never widen scope past the bound tenant. Platform-scoped tables
// (tenant registry, billing ledger, impersonation events) are reachable only
// through the explicit root constructor; a missing tenant identity fails
// closed, it never falls back to root.
package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookablehq/bookable-core/internal/metrics"
)

// Tabler is implemented by every model reachable through a handle.
type Tabler interface {
	TableName() string
}

// TenantOwned is implemented by tenant-scoped models so Create can stamp the
// bound tenant onto new rows.
type TenantOwned interface {
	Tabler
	GetTenantID() uuid.UUID
	SetTenantID(uuid.UUID)
}

// DB is a scoped data handle. Construct one per request with ForTenant or
// AsRoot; a handle is immutable once built and must not be shared across
// requests.
type DB struct {
	gdb      *gorm.DB
	tenantID uuid.UUID
	root     bool
	inTx     bool
}

// ForTenant binds a handle to one tenant. An empty tenant identity fails
// closed with ErrUnscoped rather than producing a wildcard handle.
func ForTenant(gdb *gorm.DB, tenantID uuid.UUID) (*DB, error) {
	if gdb == nil {
		return nil, fmt.Errorf("tenantdb: nil gorm handle")
	}
	if tenantID == uuid.Nil {
		metrics.UnscopedAccess.Inc()
		return nil, ErrUnscoped
	}
	return &DB{gdb: gdb, tenantID: tenantID}, nil
}

// AsRoot constructs the distinguished root handle for platform-scoped
// tables. Root is never the result of a missing tenant identity; callers
// must name it explicitly.
func AsRoot(gdb *gorm.DB) *DB {
	return &DB{gdb: gdb, root: true}
}

// SudoTenant derives a tenant-bound handle from a root handle. This is the
// explicit override that lets platform code step into a tenant's scope; it
// is never implicit.
func (d *DB) SudoTenant(tenantID uuid.UUID) (*DB, error) {
	if !d.root {
		return nil, fmt.Errorf("%w: SudoTenant requires a root handle", ErrUnauthorized)
	}
	return ForTenant(d.gdb, tenantID)
}

// TenantID returns the bound tenant identity, or uuid.Nil in root mode.
func (d *DB) TenantID() uuid.UUID { return d.tenantID }

// IsRoot reports whether the handle is in root mode.
func (d *DB) IsRoot() bool { return d.root }

// QueryOpt tweaks ordering and pagination. Options never touch scoping.
type QueryOpt func(*gorm.DB) *gorm.DB

// OrderBy sorts results by the given expression.
func OrderBy(expr string) QueryOpt {
	return func(q *gorm.DB) *gorm.DB { return q.Order(expr) }
}

// Limit caps the number of rows returned.
func Limit(n int) QueryOpt {
	return func(q *gorm.DB) *gorm.DB { return q.Limit(n) }
}

// Offset skips the first n rows.
func Offset(n int) QueryOpt {
	return func(q *gorm.DB) *gorm.DB { return q.Offset(n) }
}

// Find loads all rows matching cond into dest, constrained to the bound
// tenant.
func (d *DB) Find(ctx context.Context, dest any, cond Cond, opts ...QueryOpt) error {
	scoped, err := d.scopeFor(dest, cond)
	if err != nil {
		return err
	}
	q := d.where(ctx, scoped)
	for _, opt := range opts {
		q = opt(q)
	}
	return q.Find(dest).Error
}

// First loads the first row matching cond. Returns gorm.ErrRecordNotFound
// when no row within the bound tenant matches; a row owned by another
// tenant is indistinguishable from a missing one.
func (d *DB) First(ctx context.Context, dest any, cond Cond) error {
	scoped, err := d.scopeFor(dest, cond)
	if err != nil {
		return err
	}
	return d.where(ctx, scoped).First(dest).Error
}

// Count counts rows matching cond within the bound tenant.
func (d *DB) Count(ctx context.Context, model Tabler, cond Cond) (int64, error) {
	info, err := d.table(model.TableName())
	if err != nil {
		return 0, err
	}
	scoped, err := d.scoped(info, cond)
	if err != nil {
		return 0, err
	}
	var n int64
	err = d.where(ctx, scoped).Model(model).Count(&n).Error
	return n, err
}

// Create inserts a record, stamping the bound tenant onto tenant-scoped
// models. A record pre-populated with a different tenant is a ScopeConflict.
func (d *DB) Create(ctx context.Context, rec Tabler) error {
	info, err := d.table(rec.TableName())
	if err != nil {
		return err
	}

	if !info.PlatformScoped {
		owned, ok := rec.(TenantOwned)
		if !ok {
			return fmt.Errorf("tenantdb: model for table %s does not expose tenant ownership", info.Name)
		}
		if tid := owned.GetTenantID(); tid != uuid.Nil && tid != d.tenantID {
			metrics.ScopeConflicts.Inc()
			return fmt.Errorf("%w: create into %s with tenant %s, bound tenant %s",
				ErrScopeConflict, info.Name, tid, d.tenantID)
		}
		owned.SetTenantID(d.tenantID)
	}

	return d.gdb.WithContext(ctx).Create(rec).Error
}

// Updates applies changes to all rows matching cond within the bound tenant
// and returns the number of rows affected. Changes may not re-home rows to
// another tenant.
func (d *DB) Updates(ctx context.Context, model Tabler, cond Cond, changes map[string]any) (int64, error) {
	info, err := d.table(model.TableName())
	if err != nil {
		return 0, err
	}
	scoped, err := d.scoped(info, cond)
	if err != nil {
		return 0, err
	}
	cleaned, err := scopedChanges(info, d.tenantID, changes)
	if err != nil {
		metrics.ScopeConflicts.Inc()
		return 0, err
	}
	if info.PlatformScoped && len(scoped) == 0 {
		return 0, fmt.Errorf("tenantdb: refusing unconditional update of platform table %s", info.Name)
	}

	res := d.where(ctx, scoped).Model(model).Updates(cleaned)
	return res.RowsAffected, res.Error
}

// Delete removes all rows matching cond within the bound tenant and returns
// the number of rows affected.
func (d *DB) Delete(ctx context.Context, model Tabler, cond Cond) (int64, error) {
	info, err := d.table(model.TableName())
	if err != nil {
		return 0, err
	}
	scoped, err := d.scoped(info, cond)
	if err != nil {
		return 0, err
	}
	if info.PlatformScoped && len(scoped) == 0 {
		return 0, fmt.Errorf("tenantdb: refusing unconditional delete of platform table %s", info.Name)
	}

	res := d.where(ctx, scoped).Table(info.Name).Delete(model)
	return res.RowsAffected, res.Error
}

// table resolves a descriptor and enforces the handle-mode rules: platform
// tables need root, tenant tables need a bound tenant. A root handle cannot
// touch tenant tables implicitly; it must derive one with SudoTenant.
func (d *DB) table(name string) (TableInfo, error) {
	info, err := lookupTable(name)
	if err != nil {
		return TableInfo{}, err
	}

	if info.PlatformScoped {
		if !d.root {
			return TableInfo{}, fmt.Errorf("%w: table %s", ErrRootRequired, name)
		}
		return info, nil
	}

	if d.root || d.tenantID == uuid.Nil {
		metrics.UnscopedAccess.Inc()
		return TableInfo{}, fmt.Errorf("%w: table %s", ErrUnscoped, name)
	}
	return info, nil
}

// scoped runs cond through the filter injector for an already-resolved table.
func (d *DB) scoped(info TableInfo, cond Cond) (Cond, error) {
	combined, err := scopedCondition(info, d.tenantID, cond)
	if err != nil {
		if errors.Is(err, ErrScopeConflict) {
			metrics.ScopeConflicts.Inc()
		}
		return nil, err
	}
	return combined, nil
}

func (d *DB) scopeFor(dest any, cond Cond) (Cond, error) {
	name, err := tableNameOf(dest)
	if err != nil {
		return nil, err
	}
	info, err := d.table(name)
	if err != nil {
		return nil, err
	}
	return d.scoped(info, cond)
}

func (d *DB) where(ctx context.Context, cond Cond) *gorm.DB {
	q := d.gdb.WithContext(ctx)
	if len(cond) > 0 {
		q = q.Where(map[string]any(cond))
	}
	return q
}

// tableNameOf resolves the table behind a query destination, which may be a
// model, a pointer to one, or a (pointer to) slice of models.
func tableNameOf(dest any) (string, error) {
	if t, ok := dest.(Tabler); ok {
		return t.TableName(), nil
	}

	typ := reflect.TypeOf(dest)
	for typ != nil && (typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Slice || typ.Kind() == reflect.Array) {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return "", fmt.Errorf("tenantdb: cannot resolve table for %T", dest)
	}
	if t, ok := reflect.New(typ).Interface().(Tabler); ok {
		return t.TableName(), nil
	}
	return "", fmt.Errorf("tenantdb: %s does not implement TableName", typ)
}
