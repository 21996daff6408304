// Package domain contains persistence models and derivation rules for bills.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingStatus represents bill lifecycle states.
type BillingStatus string

const (
	BillingStatusPending       BillingStatus = "pending"
	BillingStatusPartiallyPaid BillingStatus = "partially_paid"
	BillingStatusPaid          BillingStatus = "paid"
	BillingStatusOverdue       BillingStatus = "overdue"
	BillingStatusVoided        BillingStatus = "voided"
)

// BillType distinguishes regular period bills from rebilling adjustments.
type BillType string

const (
	BillTypeRegular    BillType = "regular"
	BillTypeAdjustment BillType = "adjustment"
)

// Billing is one bill for an account and period. At most one non-voided
// regular bill may exist per (account_id, billing_period); the partial
// unique index closes the check-then-insert race. The outstanding balance
// is always derived from allocations and credit notes, never stored.
type Billing struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	AccountID         snowflake.ID  `gorm:"not null;uniqueIndex:ux_billings_account_period,priority:1,where:status <> 'voided' AND bill_type = 'regular'"`
	BillingPeriod     string        `gorm:"type:text;not null;uniqueIndex:ux_billings_account_period,priority:2"`
	BillType          BillType      `gorm:"type:text;not null;default:'regular'"`
	OriginalBillingID *snowflake.ID `gorm:"index"`
	OpeningBalance    int64         `gorm:"not null;default:0"`
	TotalAmount       int64         `gorm:"not null;default:0"`
	LateFee           int64         `gorm:"not null;default:0"`
	Status            BillingStatus `gorm:"type:text;not null;default:'pending';index"`
	DueDate           time.Time     `gorm:"not null;index"`
	LateFeeAppliedAt  *time.Time    `gorm:""`
	PaidAt            *time.Time    `gorm:""`
	VoidReason        *string       `gorm:"type:text"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Billing) TableName() string { return "billings" }

// BillingDetail is one line item tying a bill to a meter's consumption.
type BillingDetail struct {
	ID                   snowflake.ID `gorm:"primaryKey"`
	BillingID            snowflake.ID `gorm:"not null;index"`
	MeterID              snowflake.ID `gorm:"not null;index"`
	ReadingID            snowflake.ID `gorm:"not null;index"`
	PreviousReadingValue int64        `gorm:"not null"`
	CurrentReadingValue  int64        `gorm:"not null"`
	UnitsUsed            int64        `gorm:"not null"`
	RatePerUnit          int64        `gorm:"not null"`
	Amount               int64        `gorm:"not null"`
	CreatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingDetail) TableName() string { return "billing_details" }

// Balance derives the outstanding amount of a bill from its total, summed
// payment allocations, and summed non-voided credit notes. Never negative.
func Balance(totalAmount, paidAmount, appliedCredits int64) int64 {
	balance := totalAmount - paidAmount - appliedCredits
	if balance < 0 {
		return 0
	}
	return balance
}

// DeriveStatus recomputes a bill's status from payments and non-voided
// credits. Every mutation path must go through this function instead of
// writing status from a cached balance.
func DeriveStatus(totalAmount, paidAmount, appliedCredits int64, current BillingStatus) BillingStatus {
	if current == BillingStatusVoided {
		return current
	}
	if totalAmount-paidAmount-appliedCredits <= 0 {
		return BillingStatusPaid
	}
	if paidAmount > 0 {
		return BillingStatusPartiallyPaid
	}
	if current == BillingStatusPaid || current == BillingStatusPartiallyPaid {
		// Settlement no longer holds (credit voided or allocation reversed).
		return BillingStatusPending
	}
	return current
}

// ParsePeriod converts a YYYY-MM billing period into its [start, end) bounds.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", period, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return start, start.AddDate(0, 1, 0), nil
}
