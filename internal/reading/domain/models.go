// Package domain contains persistence models for meter readings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReadingType classifies how a reading was produced. Corrections are exempt
// from the monotonicity rule.
type ReadingType string

const (
	ReadingTypeActual     ReadingType = "actual"
	ReadingTypeEstimated  ReadingType = "estimated"
	ReadingTypeCorrection ReadingType = "correction"
)

// ProcessingStatus tracks whether a reading has been consumed by billing.
type ProcessingStatus string

const (
	ProcessingStatusPending ProcessingStatus = "pending"
	ProcessingStatusBilled  ProcessingStatus = "billed"
)

// MeterReading is a time-series consumption fact. Values are monotonically
// non-decreasing per meter unless the reading is an explicit correction.
type MeterReading struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	MeterID          snowflake.ID     `gorm:"not null;index:ix_readings_meter_date,priority:1"`
	Value            int64            `gorm:"column:reading_value;not null"`
	ReadingDate      time.Time        `gorm:"not null;index:ix_readings_meter_date,priority:2"`
	Type             ReadingType      `gorm:"type:text;not null;default:'actual'"`
	IsDistributed    bool             `gorm:"not null;default:false"`
	ProcessingStatus ProcessingStatus `gorm:"type:text;not null;default:'pending'"`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MeterReading) TableName() string { return "meter_readings" }
