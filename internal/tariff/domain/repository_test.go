package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rate(tier int, min int64, max *int64, perUnit int64) TariffRate {
	return TariffRate{TierNumber: tier, MinUnits: min, MaxUnits: max, RatePerUnit: perUnit}
}

func ptr(v int64) *int64 { return &v }

func TestValidateTiers(t *testing.T) {
	t.Run("valid three tier schedule", func(t *testing.T) {
		rates := []TariffRate{
			rate(1, 0, ptr(10), 100),
			rate(2, 10, ptr(30), 150),
			rate(3, 30, nil, 200),
		}
		assert.NoError(t, ValidateTiers(rates))
	})

	t.Run("single open ended tier", func(t *testing.T) {
		assert.NoError(t, ValidateTiers([]TariffRate{rate(1, 0, nil, 100)}))
	})

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, ValidateTiers(nil), ErrNoTiers)
	})

	t.Run("first tier must start at zero", func(t *testing.T) {
		rates := []TariffRate{rate(1, 5, nil, 100)}
		assert.ErrorIs(t, ValidateTiers(rates), ErrNonContiguousTiers)
	})

	t.Run("gap between tiers", func(t *testing.T) {
		rates := []TariffRate{
			rate(1, 0, ptr(10), 100),
			rate(2, 15, nil, 150),
		}
		assert.ErrorIs(t, ValidateTiers(rates), ErrNonContiguousTiers)
	})

	t.Run("middle tier may not be open ended", func(t *testing.T) {
		rates := []TariffRate{
			rate(1, 0, nil, 100),
			rate(2, 10, nil, 150),
		}
		assert.ErrorIs(t, ValidateTiers(rates), ErrNonContiguousTiers)
	})

	t.Run("tier numbers must be sequential", func(t *testing.T) {
		rates := []TariffRate{
			rate(1, 0, ptr(10), 100),
			rate(3, 10, nil, 150),
		}
		assert.ErrorIs(t, ValidateTiers(rates), ErrNonContiguousTiers)
	})

	t.Run("inverted bounds", func(t *testing.T) {
		rates := []TariffRate{rate(1, 0, ptr(0), 100)}
		assert.ErrorIs(t, ValidateTiers(rates), ErrNonContiguousTiers)
	})
}
