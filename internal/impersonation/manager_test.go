package impersonation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookablehq/bookable-core/internal/impersonation"
	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/session"
)

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

type fakeTenants struct {
	tenants map[uuid.UUID]*models.Tenant
	err     error
}

func (f *fakeTenants) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tenants[id]
	if !ok {
		return nil, fmt.Errorf("failed to get tenant: %w", gorm.ErrRecordNotFound)
	}
	return t, nil
}

type fakeRecorder struct {
	starts    []*models.ImpersonationEvent
	stops     []*models.ImpersonationEvent
	failStart bool
	failStop  bool
}

func (f *fakeRecorder) RecordStart(ctx context.Context, ev *models.ImpersonationEvent) error {
	if f.failStart {
		return errors.New("audit sink down")
	}
	f.starts = append(f.starts, ev)
	return nil
}

func (f *fakeRecorder) RecordStop(ctx context.Context, ev *models.ImpersonationEvent) error {
	if f.failStop {
		return errors.New("audit sink down")
	}
	f.stops = append(f.stops, ev)
	return nil
}

type fixture struct {
	manager  *impersonation.Manager
	recorder *fakeRecorder
	sessions *session.MemoryStore
	tenants  *fakeTenants
	operator *models.User
	member   *models.User
	tenant   *models.Tenant
	rootID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rootID := uuid.New()
	operator := &models.User{ID: uuid.New(), HomeTenantID: rootID, Email: "op@platform", Role: models.RoleOperator}
	member := &models.User{ID: uuid.New(), HomeTenantID: uuid.New(), Email: "m@acme", Role: models.RoleMember}
	tenant := &models.Tenant{ID: uuid.New(), Name: "Acme Co", Slug: "acme-co"}

	users := &fakeUsers{users: map[uuid.UUID]*models.User{operator.ID: operator, member.ID: member}}
	tenants := &fakeTenants{tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	recorder := &fakeRecorder{}
	sessions := session.NewMemoryStore()
	t.Cleanup(func() { sessions.Close() })

	return &fixture{
		manager:  impersonation.NewManager(users, tenants, recorder, sessions),
		recorder: recorder,
		sessions: sessions,
		tenants:  tenants,
		operator: operator,
		member:   member,
		tenant:   tenant,
		rootID:   rootID,
	}
}

func (f *fixture) operatorSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New(f.operator.ID, f.rootID, models.RoleOperator, time.Hour)
	if err := f.sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return sess
}

var meta = impersonation.RequestMeta{IP: "10.0.0.1", UserAgent: "admin-cli"}

func TestStartStopCorrelation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.operatorSession(t)

	tenant, err := f.manager.Start(ctx, sess, f.tenant.ID, meta)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if tenant.ID != f.tenant.ID {
		t.Errorf("resolved tenant %s, want %s", tenant.ID, f.tenant.ID)
	}
	if sess.Impersonation == nil {
		t.Fatal("session has no impersonation override")
	}
	if sess.EffectiveTenantID() != f.tenant.ID {
		t.Errorf("effective tenant = %s, want %s", sess.EffectiveTenantID(), f.tenant.ID)
	}

	// The override must be durably in the store before Start returns.
	stored, err := f.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if stored.Impersonation == nil || stored.Impersonation.CorrelationID != sess.Impersonation.CorrelationID {
		t.Error("impersonation override not persisted")
	}

	if len(f.recorder.starts) != 1 {
		t.Fatalf("recorded %d start events, want 1", len(f.recorder.starts))
	}
	cid := f.recorder.starts[0].CorrelationID
	if cid == "" || cid != sess.Impersonation.CorrelationID {
		t.Errorf("start correlation id %q does not match session %q", cid, sess.Impersonation.CorrelationID)
	}

	if err := f.manager.Stop(ctx, sess, meta); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if sess.Impersonation != nil {
		t.Error("override not cleared on stop")
	}
	if len(f.recorder.stops) != 1 {
		t.Fatalf("recorded %d stop events, want 1", len(f.recorder.stops))
	}

	stop := f.recorder.stops[0]
	if stop.CorrelationID != cid {
		t.Errorf("stop correlation id %q, want %q", stop.CorrelationID, cid)
	}
	if stop.EndedAt == nil || stop.DurationSeconds == nil {
		t.Fatal("stop event missing end time or duration")
	}
	if *stop.DurationSeconds < 0 {
		t.Errorf("duration = %d, want >= 0", *stop.DurationSeconds)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.operatorSession(t)

	if _, err := f.manager.Start(ctx, sess, f.tenant.ID, meta); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := f.manager.Stop(ctx, sess, meta); err != nil {
		t.Fatalf("first stop failed: %v", err)
	}
	if err := f.manager.Stop(ctx, sess, meta); err != nil {
		t.Fatalf("second stop should be a no-op success, got %v", err)
	}
	if len(f.recorder.stops) != 1 {
		t.Errorf("recorded %d stop events, want exactly 1", len(f.recorder.stops))
	}
}

func TestStartRequiresOperatorRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Even a session claiming the operator role fails when the
	// authoritative user record disagrees.
	sess := session.New(f.member.ID, f.member.HomeTenantID, models.RoleOperator, time.Hour)
	if err := f.sessions.Save(ctx, sess); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	_, err := f.manager.Start(ctx, sess, f.tenant.ID, meta)
	if !errors.Is(err, impersonation.ErrNotOperator) {
		t.Errorf("got %v, want ErrNotOperator", err)
	}
	if len(f.recorder.starts) != 0 {
		t.Error("no audit event should be written for a rejected start")
	}
}

func TestStartRejectsUnknownTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.operatorSession(t)

	_, err := f.manager.Start(ctx, sess, uuid.New(), meta)
	if !errors.Is(err, impersonation.ErrTenantNotFound) {
		t.Errorf("got %v, want ErrTenantNotFound", err)
	}
}

// A tenant directory outage must not read as a missing tenant; the error an
// operator acts on has to name the real failure.
func TestStartTenantLookupFailureIsNotNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenants.err = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	sess := f.operatorSession(t)

	_, err := f.manager.Start(ctx, sess, f.tenant.ID, meta)
	if err == nil {
		t.Fatal("start must fail when the tenant directory is unreachable")
	}
	if errors.Is(err, impersonation.ErrTenantNotFound) {
		t.Errorf("lookup failure surfaced as ErrTenantNotFound: %v", err)
	}
	if len(f.recorder.starts) != 0 {
		t.Error("no audit event should be written for a failed lookup")
	}
	if sess.Impersonation != nil {
		t.Error("override must not be set after a failed lookup")
	}
}

func TestStartWhileImpersonatingRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.operatorSession(t)

	if _, err := f.manager.Start(ctx, sess, f.tenant.ID, meta); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, err := f.manager.Start(ctx, sess, f.tenant.ID, meta)
	if !errors.Is(err, impersonation.ErrAlreadyImpersonating) {
		t.Errorf("got %v, want ErrAlreadyImpersonating", err)
	}
	if len(f.recorder.starts) != 1 {
		t.Errorf("recorded %d start events, want 1", len(f.recorder.starts))
	}
}

func TestStartFailsWhenAuditUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.recorder.failStart = true
	sess := f.operatorSession(t)

	if _, err := f.manager.Start(ctx, sess, f.tenant.ID, meta); err == nil {
		t.Fatal("start must fail when the start cannot be audited")
	}
	if sess.Impersonation != nil {
		t.Error("override must not be set after a failed start")
	}

	stored, err := f.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if stored.Impersonation != nil {
		t.Error("failed start leaked into the session store")
	}
}

func TestStopClearsSessionDespiteAuditFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.operatorSession(t)

	if _, err := f.manager.Start(ctx, sess, f.tenant.ID, meta); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Elevated access must end even when the audit sink is down.
	f.recorder.failStop = true
	if err := f.manager.Stop(ctx, sess, meta); err != nil {
		t.Fatalf("stop should succeed despite audit failure, got %v", err)
	}
	if sess.Impersonation != nil {
		t.Error("override not cleared")
	}

	stored, err := f.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if stored.Impersonation != nil {
		t.Error("override still in session store")
	}
}
