// Package domain contains versioned tariff pricing models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
)

// Tariff is a versioned price schedule for one meter type. At most one
// tariff is active per meter type at any date.
type Tariff struct {
	ID            snowflake.ID            `gorm:"primaryKey"`
	Name          string                  `gorm:"type:text;not null"`
	MeterType     accountdomain.MeterType `gorm:"type:text;not null;index:ix_tariffs_type_from,priority:1"`
	EffectiveFrom time.Time               `gorm:"not null;index:ix_tariffs_type_from,priority:2"`
	EffectiveTo   *time.Time              `gorm:""`
	CreatedAt     time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tariff) TableName() string { return "tariffs" }

// TariffRate is one consumption band of a tariff. MaxUnits nil marks the
// open-ended top tier. Tiers must be contiguous and non-overlapping.
type TariffRate struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TariffID    snowflake.ID `gorm:"not null;index"`
	TierNumber  int          `gorm:"not null"`
	MinUnits    int64        `gorm:"not null"`
	MaxUnits    *int64       `gorm:""`
	RatePerUnit int64        `gorm:"not null"`
	FixedCharge int64        `gorm:"not null;default:0"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TariffRate) TableName() string { return "tariff_rates" }
