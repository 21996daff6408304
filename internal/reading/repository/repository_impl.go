package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() readingdomain.Repository {
	return &repo{}
}

const readingColumns = `id, meter_id, reading_value, reading_date, type, is_distributed, processing_status, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *readingdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (`+readingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.MeterID,
		m.Value,
		m.ReadingDate,
		m.Type,
		m.IsDistributed,
		m.ProcessingStatus,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *readingdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings
		 SET reading_value = ?, type = ?, updated_at = ?
		 WHERE id = ?`,
		m.Value,
		m.Type,
		m.UpdatedAt,
		m.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM meter_readings WHERE id = ?`,
		id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings WHERE id = ?`,
		id,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindPreceding(ctx context.Context, db *gorm.DB, meterID snowflake.ID, date time.Time, excludeID snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE meter_id = ? AND reading_date < ? AND id <> ?
		 ORDER BY reading_date DESC, id DESC
		 LIMIT 1`,
		meterID,
		date,
		excludeID,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindFollowing(ctx context.Context, db *gorm.DB, meterID snowflake.ID, date time.Time, excludeID snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE meter_id = ? AND reading_date > ? AND id <> ?
		 ORDER BY reading_date ASC, id ASC
		 LIMIT 1`,
		meterID,
		date,
		excludeID,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) ExistsInMonth(ctx context.Context, db *gorm.DB, meterID snowflake.ID, date time.Time, excludeID snowflake.ID) (bool, error) {
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM meter_readings
		 WHERE meter_id = ? AND reading_date >= ? AND reading_date < ? AND id <> ?`,
		meterID,
		monthStart,
		monthEnd,
		excludeID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) IsBilled(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM billing_details WHERE reading_id = ?`,
		id,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindLatestBefore(ctx context.Context, db *gorm.DB, meterID snowflake.ID, t time.Time) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE meter_id = ? AND reading_date <= ?
		 ORDER BY reading_date DESC, id DESC
		 LIMIT 1`,
		meterID,
		t,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindLatestInRange(ctx context.Context, db *gorm.DB, meterID snowflake.ID, start, end time.Time) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+`
		 FROM meter_readings
		 WHERE meter_id = ? AND reading_date > ? AND reading_date <= ?
		 ORDER BY reading_date DESC, id DESC
		 LIMIT 1`,
		meterID,
		start,
		end,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) MarkBilled(ctx context.Context, db *gorm.DB, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings SET processing_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN ?`,
		readingdomain.ProcessingStatusBilled,
		ids,
	).Error
}
