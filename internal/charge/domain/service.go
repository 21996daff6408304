// Package domain defines the charge calculation contract.
package domain

import (
	"context"
	"time"

	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

// TierCharge is one tier's contribution to a consumption charge.
type TierCharge struct {
	TierNumber  int
	Units       int64
	RatePerUnit int64
	FixedCharge int64
	Amount      int64
}

// ChargeResult is the outcome of rating a consumption quantity.
type ChargeResult struct {
	TariffName string
	Subtotal   int64
	Tiers      []TierCharge
}

// BlendedRate is the subtotal averaged over the billed units. Line items
// record this rather than any single tier's rate, which would misstate a
// charge that crossed tiers. Zero units rate as zero.
func (r *ChargeResult) BlendedRate(units int64) int64 {
	if units <= 0 {
		return 0
	}
	return r.Subtotal / units
}

type Service interface {
	// Calculate rates unitsUsed for the meter type against the tariff
	// effective at refDate, falling back to the configured flat rate when no
	// tariff matches.
	Calculate(ctx context.Context, meterType accountdomain.MeterType, unitsUsed int64, refDate time.Time) (*ChargeResult, error)
	// LateFee returns the fee owed on totalAmount after daysOverdue; zero
	// within the configured grace period.
	LateFee(totalAmount int64, daysOverdue int) int64
}

var ErrNegativeUnits = errs.Validation("negative_units")
