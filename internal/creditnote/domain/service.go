package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

// NewCreditNote is the request to credit a bill. An empty Type defaults
// to CreditNoteTypeOther.
type NewCreditNote struct {
	BillingID snowflake.ID
	Type      CreditNoteType
	Amount    int64
	Reason    string
	IssuedBy  string
}

type Service interface {
	// Apply credits a bill and re-derives its status in one transaction.
	// The amount may never exceed the bill's current outstanding balance;
	// credits reduce debt, they do not create it.
	Apply(ctx context.Context, candidate NewCreditNote) (*CreditNote, error)
	// Void withdraws a credit note. The bill's status is re-derived from
	// the remaining payments and credits.
	Void(ctx context.Context, creditNoteID snowflake.ID, reason string) error
	ListByBilling(ctx context.Context, billingID snowflake.ID) ([]CreditNote, error)
}

var (
	ErrCreditNoteNotFound = errs.BusinessRule("credit_note_not_found")
	ErrCreditNoteVoided   = errs.BusinessRule("credit_note_voided")
	ErrNonPositiveAmount  = errs.Validation("non_positive_credit_amount")
	ErrMissingReason      = errs.Validation("missing_credit_reason")
	ErrInvalidType        = errs.Validation("invalid_credit_type")
	ErrExceedsBalance     = errs.BusinessRule("credit_exceeds_balance")
)
