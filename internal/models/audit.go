package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog represents a security-relevant event within a tenant. Rows are
// append-only; the application never updates or deletes them.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ActorID   uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	Action    string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Resource  string    `gorm:"type:varchar(255);index" json:"resource"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	IPAddress string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string    `gorm:"type:text" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// GetTenantID returns the owning tenant.
func (a *AuditLog) GetTenantID() uuid.UUID { return a.TenantID }

// SetTenantID assigns the owning tenant.
func (a *AuditLog) SetTenantID(id uuid.UUID) { a.TenantID = id }

// ImpersonationEvent actions.
const (
	ImpersonationStart = "start"
	ImpersonationStop  = "stop"
)

// ImpersonationEvent is the immutable audit record of an operator acting as
// a tenant. One correlation id links exactly one start event and at most one
// stop event. The table is platform-scoped: it spans tenants and is written
// only through a root handle.
type ImpersonationEvent struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CorrelationID   string     `gorm:"type:varchar(64);not null;index" json:"correlation_id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TenantID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	TenantName      string     `gorm:"type:varchar(255);not null" json:"tenant_name"`
	Action          string     `gorm:"type:varchar(10);not null" json:"action"` // start, stop
	StartedAt       time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	IPAddress       string     `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent       string     `gorm:"type:text" json:"user_agent"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName overrides the table name
func (ImpersonationEvent) TableName() string {
	return "impersonation_events"
}

// BeforeCreate hook
func (e *ImpersonationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
