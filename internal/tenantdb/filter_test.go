package tenantdb

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestScopedCondition(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	info := TableInfo{Name: "customers", TenantColumn: "tenant_id"}

	t.Run("injects tenant predicate", func(t *testing.T) {
		combined, err := scopedCondition(info, tenantA, Cond{"status": "active"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := combined["tenant_id"]; got != tenantA {
			t.Errorf("tenant_id = %v, want %v", got, tenantA)
		}
		if got := combined["status"]; got != "active" {
			t.Errorf("status = %v, want active", got)
		}
	})

	t.Run("nil condition still pins tenant", func(t *testing.T) {
		combined, err := scopedCondition(info, tenantA, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(combined) != 1 || combined["tenant_id"] != tenantA {
			t.Errorf("combined = %v, want only tenant_id", combined)
		}
	})

	t.Run("matching tenant in condition is accepted", func(t *testing.T) {
		for _, val := range []any{tenantA, tenantA.String()} {
			if _, err := scopedCondition(info, tenantA, Cond{"tenant_id": val}); err != nil {
				t.Errorf("matching tenant value %T rejected: %v", val, err)
			}
		}
	})

	t.Run("conflicting tenant raises immediately", func(t *testing.T) {
		for _, val := range []any{tenantB, tenantB.String(), 42, "not-a-uuid"} {
			_, err := scopedCondition(info, tenantA, Cond{"tenant_id": val})
			if !errors.Is(err, ErrScopeConflict) {
				t.Errorf("tenant value %v: got %v, want ErrScopeConflict", val, err)
			}
		}
	})

	t.Run("missing binding fails closed", func(t *testing.T) {
		_, err := scopedCondition(info, uuid.Nil, Cond{"status": "active"})
		if !errors.Is(err, ErrUnscoped) {
			t.Errorf("got %v, want ErrUnscoped", err)
		}
	})

	t.Run("platform table passes condition through", func(t *testing.T) {
		platform := TableInfo{Name: "tenants", PlatformScoped: true}
		cond := Cond{"slug": "acme-co"}
		combined, err := scopedCondition(platform, uuid.Nil, cond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(combined) != 1 || combined["slug"] != "acme-co" {
			t.Errorf("combined = %v, want passthrough", combined)
		}
	})
}

func TestScopedChanges(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	info := TableInfo{Name: "customers", TenantColumn: "tenant_id"}

	t.Run("rehoming a row is rejected", func(t *testing.T) {
		_, err := scopedChanges(info, tenantA, map[string]any{"tenant_id": tenantB, "name": "x"})
		if !errors.Is(err, ErrScopeConflict) {
			t.Errorf("got %v, want ErrScopeConflict", err)
		}
	})

	t.Run("redundant matching tenant is stripped", func(t *testing.T) {
		out, err := scopedChanges(info, tenantA, map[string]any{"tenant_id": tenantA, "name": "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := out["tenant_id"]; ok {
			t.Error("tenant_id should be stripped from changes")
		}
		if out["name"] != "x" {
			t.Errorf("name = %v, want x", out["name"])
		}
	})

	t.Run("unrelated changes pass through", func(t *testing.T) {
		out, err := scopedChanges(info, tenantA, map[string]any{"name": "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out["name"] != "x" {
			t.Errorf("changes = %v", out)
		}
	})
}

func TestRegister(t *testing.T) {
	t.Run("tenant table requires tenant column", func(t *testing.T) {
		if err := Register(TableInfo{Name: "bad_table"}); err == nil {
			t.Error("expected error for tenant table without tenant column")
		}
	})

	t.Run("platform table must not declare tenant column", func(t *testing.T) {
		if err := Register(TableInfo{Name: "bad_platform", TenantColumn: "tenant_id", PlatformScoped: true}); err == nil {
			t.Error("expected error for platform table with tenant column")
		}
	})

	t.Run("conflicting re-registration rejected", func(t *testing.T) {
		if err := Register(TableInfo{Name: "dupes", TenantColumn: "tenant_id"}); err != nil {
			t.Fatalf("first registration failed: %v", err)
		}
		if err := Register(TableInfo{Name: "dupes", TenantColumn: "org_id"}); err == nil {
			t.Error("expected error for conflicting descriptor")
		}
		// Identical re-registration is idempotent.
		if err := Register(TableInfo{Name: "dupes", TenantColumn: "tenant_id"}); err != nil {
			t.Errorf("idempotent registration failed: %v", err)
		}
	})
}
