// Package domain defines the rebilling operation.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

// RebillResult reports the outcome of recomputing a bill. An undercharge
// produces an adjustment bill, an overcharge produces a credit note against
// the original. The credit note is capped at the bill's outstanding balance;
// RefundDue carries the portion the customer already paid beyond the
// corrected total, which a credit note cannot return. On a fully settled
// bill CreditNote may be nil with the whole correction in RefundDue.
type RebillResult struct {
	OriginalBillingID snowflake.ID
	Difference        int64
	Adjustment        *billingdomain.Billing
	CreditNote        *creditnotedomain.CreditNote
	RefundDue         int64
}

type Service interface {
	// Rebill recomputes a bill's consumption charges against the current
	// readings and tariffs. The original bill is never modified; the
	// difference is issued as a separate adjustment bill or credit note.
	Rebill(ctx context.Context, billingID snowflake.ID, reason string) (*RebillResult, error)
}

var (
	ErrAdjustmentNotRebillable = errs.BusinessRule("adjustment_not_rebillable")
	ErrNoAdjustmentNeeded      = errs.BusinessRule("no_adjustment_needed")
)
