package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	accountrepo "github.com/smallbiznis/aquabill/internal/account/repository"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/aquabill/internal/audit/repository"
	auditservice "github.com/smallbiznis/aquabill/internal/audit/service"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	readingrepo "github.com/smallbiznis/aquabill/internal/reading/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type readingFixture struct {
	svc   readingdomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	meter *accountdomain.Meter
}

func setupReadingService(t *testing.T) *readingFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&accountdomain.Meter{},
		&readingdomain.MeterReading{},
		&billingdomain.Billing{},
		&billingdomain.BillingDetail{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  auditrepo.Provide(),
	})

	account := &accountdomain.Account{
		ID:            node.Generate(),
		AccountNumber: "ACC-1001",
		Name:          "Jordan Wells",
		Status:        accountdomain.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)
	meter := &accountdomain.Meter{
		ID:          node.Generate(),
		AccountID:   account.ID,
		MeterNumber: "MTR-1001",
		Status:      accountdomain.MeterStatusActive,
		Type:        accountdomain.MeterTypeIndividual,
	}
	require.NoError(t, db.Create(meter).Error)

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        readingrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
		AuditSvc:    auditSvc,
	})

	return &readingFixture{svc: svc, db: db, node: node, clock: fakeClock, meter: meter}
}

func (f *readingFixture) create(t *testing.T, value int64, date string, readingType readingdomain.ReadingType) *readingdomain.MeterReading {
	t.Helper()
	reading, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       value,
		ReadingDate: date,
		Type:        readingType,
	})
	require.NoError(t, err)
	return reading
}

func TestCreateReading(t *testing.T) {
	f := setupReadingService(t)

	reading := f.create(t, 120, "2025-01-10", "")
	assert.Equal(t, readingdomain.ReadingTypeActual, reading.Type)
	assert.Equal(t, readingdomain.ProcessingStatusPending, reading.ProcessingStatus)
	assert.Equal(t, int64(120), reading.Value)
}

func TestCreateReadingRejectsNegativeValue(t *testing.T) {
	f := setupReadingService(t)

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       -5,
		ReadingDate: "2025-01-10",
	})
	assert.ErrorIs(t, err, readingdomain.ErrNegativeValue)
}

func TestCreateReadingRejectsFutureDate(t *testing.T) {
	f := setupReadingService(t)

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       100,
		ReadingDate: "2025-04-16",
	})
	assert.ErrorIs(t, err, readingdomain.ErrFutureDate)
}

func TestCreateReadingRejectsMalformedDate(t *testing.T) {
	f := setupReadingService(t)

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       100,
		ReadingDate: "10-01-2025",
	})
	assert.ErrorIs(t, err, readingdomain.ErrInvalidDate)
}

func TestCreateReadingRejectsUnknownMeter(t *testing.T) {
	f := setupReadingService(t)

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.node.Generate(),
		Value:       100,
		ReadingDate: "2025-01-10",
	})
	assert.ErrorIs(t, err, readingdomain.ErrUnknownMeter)
}

func TestCreateReadingEnforcesMonotonicity(t *testing.T) {
	f := setupReadingService(t)
	f.create(t, 200, "2025-01-10", "")

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       150,
		ReadingDate: "2025-02-10",
	})
	assert.ErrorIs(t, err, readingdomain.ErrMonotonicViolation)
}

func TestCreateReadingCorrectionBypassesMonotonicity(t *testing.T) {
	f := setupReadingService(t)
	f.create(t, 200, "2025-01-10", "")

	reading := f.create(t, 150, "2025-02-10", readingdomain.ReadingTypeCorrection)
	assert.Equal(t, int64(150), reading.Value)
}

func TestCreateReadingRejectsDuplicateMonth(t *testing.T) {
	f := setupReadingService(t)
	f.create(t, 200, "2025-01-10", "")

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       210,
		ReadingDate: "2025-01-25",
	})
	assert.ErrorIs(t, err, readingdomain.ErrDuplicateReading)
}

func TestBackfilledReadingMayNotExceedFollowing(t *testing.T) {
	f := setupReadingService(t)
	f.create(t, 100, "2025-01-10", "")
	f.create(t, 300, "2025-03-10", "")

	_, err := f.svc.Create(context.Background(), readingdomain.NewReading{
		MeterID:     f.meter.ID,
		Value:       350,
		ReadingDate: "2025-02-10",
	})
	assert.ErrorIs(t, err, readingdomain.ErrExceedsNextReading)

	reading := f.create(t, 200, "2025-02-10", "")
	assert.Equal(t, int64(200), reading.Value)
}

func TestUpdateReading(t *testing.T) {
	f := setupReadingService(t)
	reading := f.create(t, 100, "2025-01-10", "")

	updated, err := f.svc.UpdateValue(context.Background(), reading.ID, 110, "")
	require.NoError(t, err)
	assert.Equal(t, int64(110), updated.Value)
	assert.Equal(t, readingdomain.ReadingTypeActual, updated.Type)
}

func TestUpdateReadingNotFound(t *testing.T) {
	f := setupReadingService(t)

	_, err := f.svc.UpdateValue(context.Background(), f.node.Generate(), 100, "")
	assert.ErrorIs(t, err, readingdomain.ErrReadingNotFound)
}

func TestBilledReadingIsImmutable(t *testing.T) {
	f := setupReadingService(t)
	reading := f.create(t, 100, "2025-01-10", "")

	detail := &billingdomain.BillingDetail{
		ID:        f.node.Generate(),
		BillingID: f.node.Generate(),
		MeterID:   f.meter.ID,
		ReadingID: reading.ID,
	}
	require.NoError(t, f.db.Create(detail).Error)

	_, err := f.svc.UpdateValue(context.Background(), reading.ID, 120, "")
	assert.ErrorIs(t, err, readingdomain.ErrReadingBilled)

	err = f.svc.Delete(context.Background(), reading.ID)
	assert.ErrorIs(t, err, readingdomain.ErrReadingBilled)
}

func TestDeleteReading(t *testing.T) {
	f := setupReadingService(t)
	reading := f.create(t, 100, "2025-01-10", "")

	require.NoError(t, f.svc.Delete(context.Background(), reading.ID))

	var count int64
	require.NoError(t, f.db.Model(&readingdomain.MeterReading{}).Where("id = ?", reading.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
