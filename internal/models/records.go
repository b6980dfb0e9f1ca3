package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a tenant's end customer.
type Customer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Email         string    `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Phone         string    `gorm:"type:varchar(50)" json:"phone,omitempty"`
	LoyaltyPoints int64     `gorm:"not null;default:0" json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate hook
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// GetTenantID returns the owning tenant.
func (c *Customer) GetTenantID() uuid.UUID { return c.TenantID }

// SetTenantID assigns the owning tenant.
func (c *Customer) SetTenantID(id uuid.UUID) { c.TenantID = id }

// Appointment statuses.
const (
	AppointmentBooked    = "booked"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

// Appointment represents a scheduled service slot.
type Appointment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	StartsAt   time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt     time.Time `gorm:"not null" json:"ends_at"`
	Status     string    `gorm:"type:varchar(20);not null;default:'booked';index" json:"status"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate hook
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// GetTenantID returns the owning tenant.
func (a *Appointment) GetTenantID() uuid.UUID { return a.TenantID }

// SetTenantID assigns the owning tenant.
func (a *Appointment) SetTenantID(id uuid.UUID) { a.TenantID = id }

// Invoice statuses.
const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"
)

// Invoice represents a bill issued by a tenant to one of its customers.
type Invoice struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	Number      string     `gorm:"type:varchar(50);not null" json:"number"`
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Currency    string     `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status      string     `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	IssuedAt    time.Time  `json:"issued_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// BeforeCreate hook
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// GetTenantID returns the owning tenant.
func (i *Invoice) GetTenantID() uuid.UUID { return i.TenantID }

// SetTenantID assigns the owning tenant.
func (i *Invoice) SetTenantID(id uuid.UUID) { i.TenantID = id }

// Conversation represents a messaging thread (SMS/email) with a customer.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	Channel       string     `gorm:"type:varchar(20);not null" json:"channel"` // sms, email
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate hook
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// GetTenantID returns the owning tenant.
func (c *Conversation) GetTenantID() uuid.UUID { return c.TenantID }

// SetTenantID assigns the owning tenant.
func (c *Conversation) SetTenantID(id uuid.UUID) { c.TenantID = id }
