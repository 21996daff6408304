package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type Service interface {
	// GenerateMonthlyBill creates the bill for (accountID, period). It is
	// idempotent: a second call for the same pair fails with
	// ErrDuplicateBilling and never produces a second non-voided bill.
	GenerateMonthlyBill(ctx context.Context, accountID snowflake.ID, period string) (*Billing, error)
	// OutstandingBalance derives the bill's current balance.
	OutstandingBalance(ctx context.Context, billingID snowflake.ID) (int64, error)
	// ApplyLateFees marks eligible bills overdue and applies the configured
	// late fee once per bill. Returns the number of bills touched.
	ApplyLateFees(ctx context.Context, asOf time.Time) (int, error)
	// VoidBill voids a bill so its period can be billed again.
	VoidBill(ctx context.Context, billingID snowflake.ID, reason string) error
}

var (
	ErrInvalidPeriod         = errs.Validation("invalid_billing_period")
	ErrAccountNotFound       = errs.BusinessRule("account_not_found")
	ErrAccountNotBillable    = errs.BusinessRule("account_not_billable")
	ErrNoActiveMeters        = errs.BusinessRule("no_active_meters")
	ErrDuplicateBilling      = errs.BusinessRule("duplicate_billing")
	ErrNoBillableConsumption = errs.BusinessRule("no_billable_consumption")
	ErrBillNotFound          = errs.BusinessRule("bill_not_found")
	ErrBillVoided            = errs.BusinessRule("bill_voided")
)
