// Package domain contains payment and allocation models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentStatus tracks whether a payment has been through reconciliation.
type PaymentStatus string

const (
	// PaymentStatusReceived means recorded but not yet reconciled.
	PaymentStatusReceived PaymentStatus = "received"
	// PaymentStatusAllocated means reconciliation ran; any unallocated
	// remainder stays on the payment as account credit.
	PaymentStatusAllocated PaymentStatus = "allocated"
)

// PaymentMethod identifies how a payment came in.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodDirectDebit  PaymentMethod = "direct_debit"
	PaymentMethodCard         PaymentMethod = "card"
)

// Payment is money received from an account. TransactionID is the external
// reference (bank statement line, terminal receipt) and deduplicates ingestion.
type Payment struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	AccountID     snowflake.ID  `gorm:"not null;index"`
	TransactionID string        `gorm:"type:text;not null;uniqueIndex"`
	Amount        int64         `gorm:"not null"`
	PaymentDate   time.Time     `gorm:"not null;index"`
	Method        PaymentMethod `gorm:"type:text;not null"`
	Status        PaymentStatus `gorm:"type:text;not null;default:'received';index"`
	RecordedBy    string        `gorm:"type:text;not null;default:''"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// PaymentAllocation applies part of a payment against one bill. Reversal
// never deletes rows; it stamps ReversedAt so history survives.
type PaymentAllocation struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PaymentID  snowflake.ID `gorm:"not null;index"`
	BillingID  snowflake.ID `gorm:"not null;index"`
	Amount     int64        `gorm:"not null"`
	ReversedAt *time.Time   `gorm:"index"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaymentAllocation) TableName() string { return "payment_allocations" }
