package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Billing, details []BillingDetail) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Billing, error)
	// FindActiveByAccountPeriod returns the non-voided regular bill for the
	// pair, nil when none exists.
	FindActiveByAccountPeriod(ctx context.Context, db *gorm.DB, accountID snowflake.ID, period string) (*Billing, error)
	// FindPreviousBill returns the latest non-voided regular bill with a
	// period earlier than the given one.
	FindPreviousBill(ctx context.Context, db *gorm.DB, accountID snowflake.ID, period string) (*Billing, error)
	// ListOutstandingByAccount returns unsettled bills ordered by due date
	// ascending with bill id as tie-break (FIFO allocation order).
	ListOutstandingByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Billing, error)
	ListDetails(ctx context.Context, db *gorm.DB, billingID snowflake.ID) ([]BillingDetail, error)

	SumAllocations(ctx context.Context, db *gorm.DB, billingID snowflake.ID) (int64, error)
	SumAppliedCredits(ctx context.Context, db *gorm.DB, billingID snowflake.ID) (int64, error)

	UpdateStatus(ctx context.Context, db *gorm.DB, billingID snowflake.ID, status BillingStatus, paidAt *time.Time) error
	ApplyLateFee(ctx context.Context, db *gorm.DB, billingID snowflake.ID, fee int64, at time.Time) error
	Void(ctx context.Context, db *gorm.DB, billingID snowflake.ID, reason string) error
	// ListLateFeeCandidates returns non-voided unsettled bills past due
	// before cutoff that have not had a late fee applied yet.
	ListLateFeeCandidates(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]Billing, error)
	ListByAccountBetween(ctx context.Context, db *gorm.DB, accountID snowflake.ID, from, to time.Time) ([]Billing, error)
}
