package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bookablehq/bookable-core/internal/cache"
	"github.com/bookablehq/bookable-core/internal/middleware"
	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/repository"
	"github.com/bookablehq/bookable-core/internal/services"
	"github.com/bookablehq/bookable-core/internal/session"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

type resolverFixture struct {
	db       *gorm.DB
	resolver *middleware.TenantResolver
	tenant   *models.Tenant
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.Exec(`CREATE TABLE tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		plan_tier TEXT NOT NULL DEFAULT 'starter',
		suspended BOOLEAN NOT NULL DEFAULT 0,
		billing_customer_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if err := tenantdb.Register(tenantdb.TableInfo{Name: "tenants", PlatformScoped: true}); err != nil {
		t.Fatalf("failed to register table: %v", err)
	}

	root := tenantdb.AsRoot(db)
	repo, err := repository.NewTenantRepository(root)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	tenant := &models.Tenant{Name: "Acme Co", Slug: "acme-co"}
	if err := repo.Create(context.Background(), tenant); err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { memCache.Close() })
	lookup := services.NewTenantLookup(repo, memCache, time.Minute)

	return &resolverFixture{
		db:       db,
		resolver: middleware.NewTenantResolver(lookup, db),
		tenant:   tenant,
	}
}

func memberSession(tenantID uuid.UUID) *session.Session {
	return session.New(uuid.New(), tenantID, models.RoleMember, time.Hour)
}

// serve runs a request through the resolver and captures the scope the inner
// handler observed, if any.
func (f *resolverFixture) serve(t *testing.T, req *http.Request, sess *session.Session) (*httptest.ResponseRecorder, *tenantdb.Scope) {
	t.Helper()

	var seen *tenantdb.Scope
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if scope, ok := tenantdb.ScopeFromContext(r.Context()); ok {
			seen = &scope
		}
		if _, ok := tenantdb.FromContext(r.Context()); !ok {
			t.Error("handler reached without a scoped handle")
		}
		w.WriteHeader(http.StatusOK)
	})

	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	f.resolver.Resolve(inner).ServeHTTP(rec, req)
	return rec, seen
}

func TestResolveBindsHomeTenant(t *testing.T) {
	f := newResolverFixture(t)
	sess := memberSession(f.tenant.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec, scope := f.serve(t, req, sess)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if scope == nil {
		t.Fatal("no scope resolved")
	}
	if scope.TenantID != f.tenant.ID {
		t.Errorf("scope tenant = %s, want %s", scope.TenantID, f.tenant.ID)
	}
	if scope.Impersonating {
		t.Error("scope should not be impersonating")
	}
}

func TestResolveWithoutSessionFailsClosed(t *testing.T) {
	f := newResolverFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec, _ := f.serve(t, req, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	// Resolver failures use the same JSON error shape as the handlers.
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Errorf("body %q is not the JSON error shape", rec.Body.String())
	}
}

func TestResolveRejectsClientTenantOverride(t *testing.T) {
	f := newResolverFixture(t)
	sess := memberSession(f.tenant.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	rec, _ := f.serve(t, req, sess)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestResolveUnknownTenantRejected(t *testing.T) {
	f := newResolverFixture(t)
	sess := memberSession(uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec, _ := f.serve(t, req, sess)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestResolveImpersonationOverride(t *testing.T) {
	f := newResolverFixture(t)

	sess := session.New(uuid.New(), uuid.New(), models.RoleOperator, time.Hour)
	sess.Impersonation = &session.Impersonation{
		TenantID:      f.tenant.ID,
		TenantName:    f.tenant.Name,
		CorrelationID: uuid.NewString(),
		StartedAt:     time.Now().UTC(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec, scope := f.serve(t, req, sess)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if scope == nil || !scope.Impersonating {
		t.Fatal("scope should be impersonating")
	}
	if scope.TenantID != f.tenant.ID {
		t.Errorf("scope tenant = %s, want impersonated %s", scope.TenantID, f.tenant.ID)
	}
	if scope.CorrelationID != sess.Impersonation.CorrelationID {
		t.Error("correlation id not carried into scope")
	}
}

func TestResolveSuspendedTenantBlocksMutations(t *testing.T) {
	f := newResolverFixture(t)

	if err := f.db.Exec("UPDATE tenants SET suspended = 1 WHERE id = ?", f.tenant.ID).Error; err != nil {
		t.Fatalf("failed to suspend tenant: %v", err)
	}

	t.Run("mutation blocked", func(t *testing.T) {
		sess := memberSession(f.tenant.ID)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", nil)
		rec, _ := f.serve(t, req, sess)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("read allowed", func(t *testing.T) {
		sess := memberSession(f.tenant.ID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		rec, scope := f.serve(t, req, sess)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if scope == nil || !scope.Suspended {
			t.Error("scope should carry the suspension flag")
		}
	})
}
