package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tariff *Tariff, rates []TariffRate) error
	// FindEffectiveAt resolves the tariff active for the meter type at the
	// given date, nil when none matches.
	FindEffectiveAt(ctx context.Context, db *gorm.DB, meterType accountdomain.MeterType, at time.Time) (*Tariff, error)
	ListRates(ctx context.Context, db *gorm.DB, tariffID snowflake.ID) ([]TariffRate, error)
	// CloseOpenTariff ends the currently open tariff for the meter type so a
	// replacement can take effect without overlap.
	CloseOpenTariff(ctx context.Context, db *gorm.DB, meterType accountdomain.MeterType, at time.Time) error
}

var (
	ErrNonContiguousTiers = errs.Validation("tariff_tiers_not_contiguous")
	ErrNoTiers            = errs.Validation("tariff_requires_tiers")
	ErrOverlappingTariff  = errs.BusinessRule("overlapping_tariff")
)

// ValidateTiers checks tiers are ordered, contiguous, and non-overlapping.
// Tier N's MinUnits must equal tier N-1's MaxUnits; only the last tier may
// be open-ended.
func ValidateTiers(rates []TariffRate) error {
	if len(rates) == 0 {
		return ErrNoTiers
	}
	for i, rate := range rates {
		if rate.TierNumber != i+1 {
			return ErrNonContiguousTiers
		}
		if i == 0 {
			if rate.MinUnits != 0 {
				return ErrNonContiguousTiers
			}
		} else {
			prev := rates[i-1]
			if prev.MaxUnits == nil || rate.MinUnits != *prev.MaxUnits {
				return ErrNonContiguousTiers
			}
		}
		if rate.MaxUnits != nil && *rate.MaxUnits <= rate.MinUnits {
			return ErrNonContiguousTiers
		}
	}
	return nil
}
