// Package domain contains credit note models and rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreditNoteStatus tracks whether a credit still reduces its bill.
type CreditNoteStatus string

const (
	CreditNoteStatusApplied CreditNoteStatus = "applied"
	CreditNoteStatusVoided  CreditNoteStatus = "voided"
)

// CreditNoteType records why the credit was issued.
type CreditNoteType string

const (
	CreditNoteTypePreviousResidentDebt CreditNoteType = "previous_resident_debt"
	CreditNoteTypeBillingError         CreditNoteType = "billing_error"
	CreditNoteTypeGoodwill             CreditNoteType = "goodwill"
	CreditNoteTypeOther                CreditNoteType = "other"
)

// CreditNote reduces the outstanding balance of one bill. Reference is a
// ULID handed to the customer; it sorts by issue time. Voiding stamps
// VoidedAt and the bill's balance derivation ignores the row from then on.
type CreditNote struct {
	ID         snowflake.ID     `gorm:"primaryKey"`
	BillingID  snowflake.ID     `gorm:"not null;index"`
	Reference  string           `gorm:"type:text;not null;uniqueIndex"`
	Type       CreditNoteType   `gorm:"type:text;not null;default:'other'"`
	Amount     int64            `gorm:"not null"`
	Reason     string           `gorm:"type:text;not null"`
	Status     CreditNoteStatus `gorm:"type:text;not null;default:'applied';index"`
	IssuedBy   string           `gorm:"type:text;not null;default:''"`
	VoidReason *string          `gorm:"type:text"`
	VoidedAt   *time.Time       `gorm:""`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditNote) TableName() string { return "credit_notes" }
