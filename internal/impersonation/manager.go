// Package impersonation lets a platform operator act as a tenant for
// support and debugging, time-boxed by the session and fully audited.
package impersonation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bookablehq/bookable-core/internal/metrics"
	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/session"
)

var (
	// ErrNotOperator is returned when a non-operator attempts to start
	// impersonation. Checked against the authoritative user row, not cached
	// session claims.
	ErrNotOperator = errors.New("impersonation: caller is not a platform operator")

	// ErrAlreadyImpersonating is returned when a start arrives while an
	// override is active. Operators must stop explicitly first so the audit
	// trail stays 1:1 with operator intent.
	ErrAlreadyImpersonating = errors.New("impersonation: session is already impersonating")

	// ErrTenantNotFound is returned when the target tenant does not exist.
	ErrTenantNotFound = errors.New("impersonation: target tenant not found")
)

// UserDirectory resolves the authoritative user record.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TenantDirectory resolves tenants from the registry.
type TenantDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// EventRecorder is the synchronous audit sink for impersonation events.
type EventRecorder interface {
	RecordStart(ctx context.Context, ev *models.ImpersonationEvent) error
	RecordStop(ctx context.Context, ev *models.ImpersonationEvent) error
}

// RequestMeta carries requester attribution for the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Manager drives the per-session impersonation state machine: Normal and
// Impersonating(tenant, correlation id, started at).
type Manager struct {
	users    UserDirectory
	tenants  TenantDirectory
	recorder EventRecorder
	sessions session.Store
}

// NewManager creates a manager.
func NewManager(users UserDirectory, tenants TenantDirectory, recorder EventRecorder, sessions session.Store) *Manager {
	return &Manager{
		users:    users,
		tenants:  tenants,
		recorder: recorder,
		sessions: sessions,
	}
}

// Start transitions a session from Normal to Impersonating. The operator
// role is re-checked against the user record, the target must exist, and the
// "start" event must be durably audited and the session persisted before the
// caller may treat impersonation as active. Suspended tenants may be
// impersonated (support needs to inspect them); mutations stay blocked by
// the resolver.
func (m *Manager) Start(ctx context.Context, sess *session.Session, targetTenantID uuid.UUID, meta RequestMeta) (*models.Tenant, error) {
	user, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", sess.UserID, err)
	}
	if !user.IsOperator() {
		return nil, ErrNotOperator
	}
	if sess.Impersonation != nil {
		return nil, ErrAlreadyImpersonating
	}

	tenant, err := m.tenants.GetByID(ctx, targetTenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, targetTenantID)
		}
		// A lookup failure is not a missing tenant; let it surface as the
		// infrastructure error it is.
		return nil, fmt.Errorf("failed to resolve tenant %s: %w", targetTenantID, err)
	}

	now := time.Now().UTC()
	correlationID := uuid.NewString()

	ev := &models.ImpersonationEvent{
		CorrelationID: correlationID,
		UserID:        user.ID,
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		StartedAt:     now,
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
	}
	if err := m.recorder.RecordStart(ctx, ev); err != nil {
		// An unaudited start must not happen.
		return nil, err
	}

	sess.Impersonation = &session.Impersonation{
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		CorrelationID: correlationID,
		StartedAt:     now,
	}
	if err := m.sessions.Save(ctx, sess); err != nil {
		// The start event is already on disk; close the correlation so it
		// does not dangle as an open session that never existed.
		sess.Impersonation = nil
		m.closeEvent(ctx, user.ID, tenant, correlationID, now, meta)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	metrics.ImpersonationStarts.Inc()
	log.Info().
		Str("correlation_id", correlationID).
		Str("user_id", user.ID.String()).
		Str("tenant_id", tenant.ID.String()).
		Msg("Impersonation started")

	return tenant, nil
}

// Stop transitions a session back to Normal. Idempotent: stopping a session
// that is not impersonating is a successful no-op. A failed stop audit is
// logged and counted but never extends elevated access; the session
// override is cleared regardless.
func (m *Manager) Stop(ctx context.Context, sess *session.Session, meta RequestMeta) error {
	imp := sess.Impersonation
	if imp == nil {
		return nil
	}

	now := time.Now().UTC()
	duration := int64(now.Sub(imp.StartedAt).Seconds())
	ev := &models.ImpersonationEvent{
		CorrelationID:   imp.CorrelationID,
		UserID:          sess.UserID,
		TenantID:        imp.TenantID,
		TenantName:      imp.TenantName,
		StartedAt:       imp.StartedAt,
		EndedAt:         &now,
		DurationSeconds: &duration,
		IPAddress:       meta.IP,
		UserAgent:       meta.UserAgent,
	}
	if err := m.recorder.RecordStop(ctx, ev); err != nil {
		log.Error().Err(err).
			Str("correlation_id", imp.CorrelationID).
			Msg("Failed to audit impersonation stop; clearing override anyway")
	}

	sess.Impersonation = nil
	if err := m.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	metrics.ImpersonationStops.Inc()
	log.Info().
		Str("correlation_id", imp.CorrelationID).
		Str("user_id", sess.UserID.String()).
		Msg("Impersonation stopped")

	return nil
}

// closeEvent writes a zero-duration stop for a start whose session could not
// be persisted, keeping the correlation well-formed.
func (m *Manager) closeEvent(ctx context.Context, userID uuid.UUID, tenant *models.Tenant, correlationID string, startedAt time.Time, meta RequestMeta) {
	now := time.Now().UTC()
	duration := int64(now.Sub(startedAt).Seconds())
	ev := &models.ImpersonationEvent{
		CorrelationID:   correlationID,
		UserID:          userID,
		TenantID:        tenant.ID,
		TenantName:      tenant.Name,
		StartedAt:       startedAt,
		EndedAt:         &now,
		DurationSeconds: &duration,
		IPAddress:       meta.IP,
		UserAgent:       meta.UserAgent,
	}
	if err := m.recorder.RecordStop(ctx, ev); err != nil {
		log.Error().Err(err).
			Str("correlation_id", correlationID).
			Msg("Failed to close orphaned impersonation start")
	}
}
