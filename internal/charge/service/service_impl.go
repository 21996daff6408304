package service

import (
	"context"
	"time"

	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	chargedomain "github.com/smallbiznis/aquabill/internal/charge/domain"
	"github.com/smallbiznis/aquabill/internal/config"
	tariffdomain "github.com/smallbiznis/aquabill/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	TariffRepo tariffdomain.Repository
	BillingCfg *config.BillingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	tariffRepo tariffdomain.Repository
	billingCfg *config.BillingConfigHolder
}

func NewService(p Params) chargedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("charge.service"),
		tariffRepo: p.TariffRepo,
		billingCfg: p.BillingCfg,
	}
}

func (s *Service) Calculate(ctx context.Context, meterType accountdomain.MeterType, unitsUsed int64, refDate time.Time) (*chargedomain.ChargeResult, error) {
	if unitsUsed < 0 {
		return nil, chargedomain.ErrNegativeUnits
	}

	tariff, err := s.tariffRepo.FindEffectiveAt(ctx, s.db, meterType, refDate)
	if err != nil {
		return nil, err
	}
	if tariff == nil {
		// Fallback keeps bill generation from failing when pricing is
		// misconfigured for a meter type.
		flatRate := s.billingCfg.Get().DefaultFlatRate
		s.log.Warn("no tariff effective, using default flat rate",
			zap.String("meter_type", string(meterType)),
			zap.Time("ref_date", refDate),
			zap.Int64("rate", flatRate),
		)
		return &chargedomain.ChargeResult{
			TariffName: "default_flat",
			Subtotal:   unitsUsed * flatRate,
			Tiers: []chargedomain.TierCharge{{
				TierNumber:  1,
				Units:       unitsUsed,
				RatePerUnit: flatRate,
				Amount:      unitsUsed * flatRate,
			}},
		}, nil
	}

	rates, err := s.tariffRepo.ListRates(ctx, s.db, tariff.ID)
	if err != nil {
		return nil, err
	}
	if err := tariffdomain.ValidateTiers(rates); err != nil {
		return nil, err
	}

	result := &chargedomain.ChargeResult{TariffName: tariff.Name}
	remaining := unitsUsed
	for _, rate := range rates {
		if remaining <= 0 {
			break
		}
		units := remaining
		if rate.MaxUnits != nil {
			capacity := *rate.MaxUnits - rate.MinUnits
			if units > capacity {
				units = capacity
			}
		}
		amount := units*rate.RatePerUnit + rate.FixedCharge
		result.Tiers = append(result.Tiers, chargedomain.TierCharge{
			TierNumber:  rate.TierNumber,
			Units:       units,
			RatePerUnit: rate.RatePerUnit,
			FixedCharge: rate.FixedCharge,
			Amount:      amount,
		})
		result.Subtotal += amount
		remaining -= units
	}

	return result, nil
}

func (s *Service) LateFee(totalAmount int64, daysOverdue int) int64 {
	cfg := s.billingCfg.Get().LateFee
	if daysOverdue <= cfg.GraceDays {
		return 0
	}
	switch cfg.Policy {
	case config.LateFeePolicyPercentage:
		return totalAmount * cfg.PercentBps / 10_000
	default:
		return cfg.FlatAmount
	}
}
