package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan tiers a tenant can be provisioned on.
const (
	PlanStarter  = "starter"
	PlanGrowth   = "growth"
	PlanBusiness = "business"
)

// Tenant represents a customer organization (salon, clinic, workshop).
// Tenants are never physically deleted; suspension preserves billing and
// audit history.
type Tenant struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug              string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	PlanTier          string    `gorm:"type:varchar(50);not null;default:'starter'" json:"plan_tier"`
	Suspended         bool      `gorm:"not null;default:false;index" json:"suspended"`
	BillingCustomerID string    `gorm:"type:varchar(255)" json:"billing_customer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate hook
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// User roles. Operators belong to the platform root tenant and may
// impersonate; members and admins act only within their home tenant.
const (
	RoleMember   = "member"
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User represents an authenticated person. HomeTenantID is the tenant the
// user belongs to; for platform operators it is the root tenant.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	HomeTenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"home_tenant_id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Role         string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsOperator reports whether the user holds the platform-operator role.
func (u *User) IsOperator() bool {
	return u.Role == RoleOperator
}

// BillingLedgerEntry is a cross-tenant billing record. The ledger is
// platform-scoped: it is written by billing workflows acting as root and is
// never reachable through a tenant-bound handle.
type BillingLedgerEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Kind        string    `gorm:"type:varchar(50);not null" json:"kind"` // subscription, usage, refund
	Reference   string    `gorm:"type:varchar(255)" json:"reference,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (BillingLedgerEntry) TableName() string {
	return "billing_ledger"
}

// BeforeCreate hook
func (b *BillingLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
