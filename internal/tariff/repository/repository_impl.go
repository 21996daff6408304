package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	tariffdomain "github.com/smallbiznis/aquabill/internal/tariff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tariffdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tariff *tariffdomain.Tariff, rates []tariffdomain.TariffRate) error {
	if err := tariffdomain.ValidateTiers(rates); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO tariffs (id, name, meter_type, effective_from, effective_to, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			tariff.ID,
			tariff.Name,
			tariff.MeterType,
			tariff.EffectiveFrom,
			tariff.EffectiveTo,
			tariff.CreatedAt,
		).Error; err != nil {
			return err
		}
		for _, rate := range rates {
			if err := tx.Exec(
				`INSERT INTO tariff_rates (id, tariff_id, tier_number, min_units, max_units, rate_per_unit, fixed_charge, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rate.ID,
				tariff.ID,
				rate.TierNumber,
				rate.MinUnits,
				rate.MaxUnits,
				rate.RatePerUnit,
				rate.FixedCharge,
				rate.CreatedAt,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) FindEffectiveAt(ctx context.Context, db *gorm.DB, meterType accountdomain.MeterType, at time.Time) (*tariffdomain.Tariff, error) {
	var tariff tariffdomain.Tariff
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, meter_type, effective_from, effective_to, created_at
		 FROM tariffs
		 WHERE meter_type = ?
		 AND effective_from <= ?
		 AND (effective_to IS NULL OR effective_to > ?)
		 ORDER BY effective_from DESC
		 LIMIT 1`,
		meterType,
		at,
		at,
	).Scan(&tariff).Error
	if err != nil {
		return nil, err
	}
	if tariff.ID == 0 {
		return nil, nil
	}
	return &tariff, nil
}

func (r *repo) ListRates(ctx context.Context, db *gorm.DB, tariffID snowflake.ID) ([]tariffdomain.TariffRate, error) {
	var rates []tariffdomain.TariffRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, tariff_id, tier_number, min_units, max_units, rate_per_unit, fixed_charge, created_at
		 FROM tariff_rates
		 WHERE tariff_id = ?
		 ORDER BY tier_number ASC`,
		tariffID,
	).Scan(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repo) CloseOpenTariff(ctx context.Context, db *gorm.DB, meterType accountdomain.MeterType, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tariffs
		 SET effective_to = ?
		 WHERE meter_type = ? AND effective_to IS NULL AND effective_from < ?`,
		at,
		meterType,
		at,
	).Error
}
