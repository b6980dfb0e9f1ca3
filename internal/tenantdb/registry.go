package tenantdb

import (
	"fmt"
	"sync"
)

// TableInfo describes how a table participates in tenant scoping. Exactly
// one of the two shapes is valid: a tenant-scoped table with a non-null
// tenant column, or a platform-scoped table with none.
type TableInfo struct {
	Name           string
	TenantColumn   string
	PlatformScoped bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]TableInfo)
)

// Register adds a table to the scoping registry. Every table reachable
// through a handle must be registered at startup; unregistered tables are
// rejected at query time. Tenant-scoped tables must name their tenant
// column; nullable tenant columns are not supported by this layer and must
// be ruled out in the schema.
func Register(info TableInfo) error {
	if info.Name == "" {
		return fmt.Errorf("tenantdb: table name is required")
	}
	if info.PlatformScoped && info.TenantColumn != "" {
		return fmt.Errorf("tenantdb: platform table %q must not declare a tenant column", info.Name)
	}
	if !info.PlatformScoped && info.TenantColumn == "" {
		return fmt.Errorf("tenantdb: tenant table %q must declare a tenant column", info.Name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[info.Name]; ok && existing != info {
		return fmt.Errorf("tenantdb: table %q already registered with different descriptor", info.Name)
	}
	registry[info.Name] = info
	return nil
}

// MustRegister registers a table and panics on error. Intended for startup
// wiring where a bad descriptor is unrecoverable.
func MustRegister(info TableInfo) {
	if err := Register(info); err != nil {
		panic(err)
	}
}

// lookupTable resolves a table descriptor.
func lookupTable(name string) (TableInfo, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	info, ok := registry[name]
	if !ok {
		return TableInfo{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return info, nil
}
