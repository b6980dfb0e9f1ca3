// Package session holds server-side session state keyed by an opaque id.
// The tenant a request acts as is derived from this state, never from
// client-supplied tenant identifiers.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session: not found")

// Impersonation is the operator-only override that rebinds a session to
// another tenant. It may be non-nil only for users holding the operator
// role; the impersonation manager enforces that at start.
type Impersonation struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	TenantName    string    `json:"tenant_name"`
	CorrelationID string    `json:"correlation_id"`
	StartedAt     time.Time `json:"started_at"`
}

// Session is the server-held state for one authenticated client.
type Session struct {
	ID            string         `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	HomeTenantID  uuid.UUID      `json:"home_tenant_id"`
	Role          string         `json:"role"`
	Impersonation *Impersonation `json:"impersonation,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// New creates a session with a fresh unpredictable id.
func New(userID, homeTenantID uuid.UUID, role string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		HomeTenantID: homeTenantID,
		Role:         role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// EffectiveTenantID is the tenant this session's operations bind to.
func (s *Session) EffectiveTenantID() uuid.UUID {
	if s.Impersonation != nil {
		return s.Impersonation.TenantID
	}
	return s.HomeTenantID
}

// Store persists sessions. Save must durably record state before returning:
// impersonation is not considered active until the store has it.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
