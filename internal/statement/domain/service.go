// Package domain defines account statements, a read model assembled from
// bills, payments, and credit notes. Statements are never persisted.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

// StatementLine summarizes one bill inside the statement window.
type StatementLine struct {
	BillingID     snowflake.ID
	BillingPeriod string
	BillType      billingdomain.BillType
	Status        billingdomain.BillingStatus
	TotalAmount   int64
	PaidAmount    int64
	CreditedTotal int64
	Balance       int64
	DueDate       time.Time
}

// Statement is the account activity between From (inclusive) and To
// (exclusive).
type Statement struct {
	AccountID      snowflake.ID
	AccountNumber  string
	From           time.Time
	To             time.Time
	Lines          []StatementLine
	TotalBilled    int64
	TotalPaid      int64
	TotalCredited  int64
	ClosingBalance int64
	GeneratedAt    time.Time
}

type Service interface {
	Generate(ctx context.Context, accountID snowflake.ID, from, to time.Time) (*Statement, error)
	// MarkSent records delivery of the statement for (account, period) and
	// reports whether this call was the first within the configured window.
	// Delivery retries become no-ops instead of duplicate sends.
	MarkSent(ctx context.Context, accountID snowflake.ID, period string) (bool, error)
}

var (
	ErrAccountNotFound = errs.BusinessRule("account_not_found")
	ErrInvalidWindow   = errs.Validation("invalid_statement_window")
)
