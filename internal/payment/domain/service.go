package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

// NewPayment is the recording request for an incoming payment.
type NewPayment struct {
	AccountID     snowflake.ID
	TransactionID string
	Amount        int64
	PaymentDate   time.Time
	Method        PaymentMethod
	RecordedBy    string
}

// Actor identifies who is asking for a reconciliation reversal.
type Actor struct {
	UserID string
	Role   string
}

// ReconciliationStatus summarizes how far a reconciliation run got.
type ReconciliationStatus string

const (
	// ReconciliationStatusReconciled means the full amount was placed.
	ReconciliationStatusReconciled ReconciliationStatus = "reconciled"
	// ReconciliationStatusPartial means some amount stayed on the payment
	// as account credit.
	ReconciliationStatusPartial ReconciliationStatus = "partially_reconciled"
)

// ReconcileResult reports what a reconciliation run did.
type ReconcileResult struct {
	PaymentID   snowflake.ID
	Allocations []PaymentAllocation
	Unallocated int64
	Status      ReconciliationStatus
}

type Service interface {
	// RecordPayment persists an incoming payment. A repeated TransactionID
	// fails with ErrDuplicatePayment so bank feeds can be replayed safely.
	RecordPayment(ctx context.Context, candidate NewPayment) (*Payment, error)
	// Reconcile allocates the payment's unallocated amount against the
	// account's outstanding bills, oldest due date first, inside a single
	// transaction. Partial coverage is allowed; any remainder stays on the
	// payment as account credit. An already reconciled payment fails with
	// ErrAlreadyReconciled unless force is set, in which case only the
	// still-unallocated amount is placed.
	Reconcile(ctx context.Context, paymentID snowflake.ID, force bool) (*ReconcileResult, error)
	// ReverseReconciliation undoes every active allocation of the payment
	// and re-derives the affected bill statuses. Who may do this is
	// controlled by the configured reversal policy.
	ReverseReconciliation(ctx context.Context, paymentID snowflake.ID, actor Actor, reason string) error
	FindByID(ctx context.Context, paymentID snowflake.ID) (*Payment, error)
}

var (
	ErrPaymentNotFound   = errs.BusinessRule("payment_not_found")
	ErrAlreadyReconciled = errs.BusinessRule("already_reconciled")
	ErrDuplicatePayment  = errs.BusinessRule("duplicate_payment")
	ErrNonPositiveAmount = errs.Validation("non_positive_payment_amount")
	ErrNothingToReverse  = errs.BusinessRule("nothing_to_reverse")
	ErrReversalForbidden = errs.BusinessRule("reversal_forbidden")
)
