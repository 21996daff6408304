package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBalance(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		paid    int64
		credits int64
		want    int64
	}{
		{"nothing paid", 10_000, 0, 0, 10_000},
		{"partially paid", 10_000, 4_000, 0, 6_000},
		{"credits reduce balance", 10_000, 4_000, 1_000, 5_000},
		{"fully settled", 10_000, 8_000, 2_000, 0},
		{"overpaid clamps to zero", 10_000, 12_000, 0, 0},
		{"credits exceed total", 5_000, 0, 9_000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Balance(tt.total, tt.paid, tt.credits))
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		paid    int64
		credits int64
		current BillingStatus
		want    BillingStatus
	}{
		{"voided is sticky", 10_000, 10_000, 0, BillingStatusVoided, BillingStatusVoided},
		{"settled by payments", 10_000, 10_000, 0, BillingStatusPending, BillingStatusPaid},
		{"settled by credits", 10_000, 0, 10_000, BillingStatusPending, BillingStatusPaid},
		{"partial payment", 10_000, 3_000, 0, BillingStatusPending, BillingStatusPartiallyPaid},
		{"partial on overdue bill", 10_000, 3_000, 0, BillingStatusOverdue, BillingStatusPartiallyPaid},
		{"credit alone does not mark partial", 10_000, 0, 3_000, BillingStatusPending, BillingStatusPending},
		{"overdue untouched without payments", 10_000, 0, 0, BillingStatusOverdue, BillingStatusOverdue},
		{"reversal reopens paid bill", 10_000, 0, 0, BillingStatusPaid, BillingStatusPending},
		{"credit void reopens partially paid", 10_000, 0, 0, BillingStatusPartiallyPaid, BillingStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.total, tt.paid, tt.credits, tt.current))
		})
	}
}

func TestParsePeriod(t *testing.T) {
	start, end, err := ParsePeriod("2025-02")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), end)

	for _, bad := range []string{"", "2025", "2025-13", "02-2025", "2025-2"} {
		_, _, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriod, "period %q", bad)
	}
}
