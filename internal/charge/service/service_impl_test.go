package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	chargedomain "github.com/smallbiznis/aquabill/internal/charge/domain"
	"github.com/smallbiznis/aquabill/internal/config"
	tariffdomain "github.com/smallbiznis/aquabill/internal/tariff/domain"
	tariffrepo "github.com/smallbiznis/aquabill/internal/tariff/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupChargeService(t *testing.T) (chargedomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&tariffdomain.Tariff{}, &tariffdomain.TariffRate{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:         db,
		Log:        zap.NewNop(),
		TariffRepo: tariffrepo.Provide(),
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})
	return svc, db, node
}

func seedTariff(t *testing.T, db *gorm.DB, node *snowflake.Node, meterType accountdomain.MeterType, from time.Time) *tariffdomain.Tariff {
	t.Helper()

	tariff := &tariffdomain.Tariff{
		ID:            node.Generate(),
		Name:          "residential_2025",
		MeterType:     meterType,
		EffectiveFrom: from,
	}
	require.NoError(t, db.Create(tariff).Error)

	max1, max2 := int64(10), int64(30)
	rates := []tariffdomain.TariffRate{
		{ID: node.Generate(), TariffID: tariff.ID, TierNumber: 1, MinUnits: 0, MaxUnits: &max1, RatePerUnit: 100, FixedCharge: 500},
		{ID: node.Generate(), TariffID: tariff.ID, TierNumber: 2, MinUnits: 10, MaxUnits: &max2, RatePerUnit: 150},
		{ID: node.Generate(), TariffID: tariff.ID, TierNumber: 3, MinUnits: 30, RatePerUnit: 200},
	}
	require.NoError(t, db.Create(&rates).Error)
	return tariff
}

func TestCalculateWalksTiers(t *testing.T) {
	svc, db, node := setupChargeService(t)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedTariff(t, db, node, accountdomain.MeterTypeIndividual, refDate.AddDate(0, -1, 0))

	result, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, 45, refDate)
	require.NoError(t, err)

	// 10*100+500 fixed, 20*150, then 15*200 in the open tier.
	assert.Equal(t, int64(1_500+3_000+3_000), result.Subtotal)
	require.Len(t, result.Tiers, 3)
	assert.Equal(t, int64(10), result.Tiers[0].Units)
	assert.Equal(t, int64(20), result.Tiers[1].Units)
	assert.Equal(t, int64(15), result.Tiers[2].Units)
	assert.Equal(t, "residential_2025", result.TariffName)

	// The line-item rate averages across the tiers the charge crossed
	// rather than quoting any single tier.
	assert.Equal(t, int64(166), result.BlendedRate(45))
}

func TestBlendedRate(t *testing.T) {
	svc, db, node := setupChargeService(t)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedTariff(t, db, node, accountdomain.MeterTypeIndividual, refDate.AddDate(0, -1, 0))

	// Inside the first tier the blended rate exceeds the per-unit rate by
	// the spread-out fixed charge.
	result, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, 5, refDate)
	require.NoError(t, err)
	assert.Equal(t, int64((5*100+500)/5), result.BlendedRate(5))

	zero, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, 0, refDate)
	require.NoError(t, err)
	assert.Equal(t, int64(0), zero.BlendedRate(0))
}

func TestCalculateStopsAtConsumedUnits(t *testing.T) {
	svc, db, node := setupChargeService(t)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedTariff(t, db, node, accountdomain.MeterTypeIndividual, refDate.AddDate(0, -1, 0))

	result, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, 7, refDate)
	require.NoError(t, err)

	assert.Equal(t, int64(7*100+500), result.Subtotal)
	require.Len(t, result.Tiers, 1)
}

func TestCalculateZeroUnitsStillChargesNothing(t *testing.T) {
	svc, db, node := setupChargeService(t)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedTariff(t, db, node, accountdomain.MeterTypeIndividual, refDate.AddDate(0, -1, 0))

	result, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, 0, refDate)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Subtotal)
	assert.Empty(t, result.Tiers)
}

func TestCalculateFallsBackToFlatRate(t *testing.T) {
	svc, _, _ := setupChargeService(t)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	result, err := svc.Calculate(context.Background(), accountdomain.MeterTypeBulk, 12, refDate)
	require.NoError(t, err)

	flat := config.DefaultBillingConfig().DefaultFlatRate
	assert.Equal(t, 12*flat, result.Subtotal)
	assert.Equal(t, "default_flat", result.TariffName)
}

func TestCalculateIgnoresFutureTariff(t *testing.T) {
	svc, db, node := setupChargeService(t)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedTariff(t, db, node, accountdomain.MeterTypeIndividual, refDate.AddDate(0, 2, 0))

	result, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, 5, refDate)
	require.NoError(t, err)
	assert.Equal(t, "default_flat", result.TariffName)
}

func TestCalculateRejectsNegativeUnits(t *testing.T) {
	svc, _, _ := setupChargeService(t)

	_, err := svc.Calculate(context.Background(), accountdomain.MeterTypeIndividual, -1, time.Now())
	assert.ErrorIs(t, err, chargedomain.ErrNegativeUnits)
}

func TestLateFee(t *testing.T) {
	flatCfg := config.DefaultBillingConfig()
	percentCfg := config.DefaultBillingConfig()
	percentCfg.LateFee.Policy = config.LateFeePolicyPercentage

	newSvc := func(cfg config.BillingConfig) chargedomain.Service {
		return NewService(Params{
			Log:        zap.NewNop(),
			TariffRepo: tariffrepo.Provide(),
			BillingCfg: config.NewStaticBillingConfigHolder(cfg),
		})
	}

	t.Run("within grace period", func(t *testing.T) {
		svc := newSvc(flatCfg)
		assert.Equal(t, int64(0), svc.LateFee(10_000, flatCfg.LateFee.GraceDays))
	})

	t.Run("flat after grace", func(t *testing.T) {
		svc := newSvc(flatCfg)
		assert.Equal(t, flatCfg.LateFee.FlatAmount, svc.LateFee(10_000, flatCfg.LateFee.GraceDays+1))
	})

	t.Run("percentage in basis points", func(t *testing.T) {
		svc := newSvc(percentCfg)
		// 500 bps of 10 000.
		assert.Equal(t, int64(500), svc.LateFee(10_000, percentCfg.LateFee.GraceDays+1))
	})
}
