package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	Update(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MeterReading, error)

	// FindPreceding returns the latest reading strictly before date for the
	// meter, excluding excludeID (zero to exclude nothing).
	FindPreceding(ctx context.Context, db *gorm.DB, meterID snowflake.ID, date time.Time, excludeID snowflake.ID) (*MeterReading, error)
	// FindFollowing returns the earliest reading strictly after date.
	FindFollowing(ctx context.Context, db *gorm.DB, meterID snowflake.ID, date time.Time, excludeID snowflake.ID) (*MeterReading, error)
	// ExistsInMonth reports whether the meter already has a reading in the
	// calendar month of date, excluding excludeID.
	ExistsInMonth(ctx context.Context, db *gorm.DB, meterID snowflake.ID, date time.Time, excludeID snowflake.ID) (bool, error)
	// IsBilled reports whether the reading is referenced by a billing detail.
	IsBilled(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	// FindLatestBefore returns the latest reading on or before t.
	FindLatestBefore(ctx context.Context, db *gorm.DB, meterID snowflake.ID, t time.Time) (*MeterReading, error)
	// FindLatestInRange returns the latest reading in (start, end].
	FindLatestInRange(ctx context.Context, db *gorm.DB, meterID snowflake.ID, start, end time.Time) (*MeterReading, error)
	MarkBilled(ctx context.Context, db *gorm.DB, ids []snowflake.ID) error
}
