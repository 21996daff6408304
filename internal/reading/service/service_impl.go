package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        readingdomain.Repository
	AccountRepo accountdomain.Repository
	AuditSvc    auditdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        readingdomain.Repository
	accountRepo accountdomain.Repository
	auditSvc    auditdomain.Service
}

func NewService(p Params) readingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reading.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, candidate readingdomain.NewReading) (*readingdomain.MeterReading, error) {
	if candidate.Value < 0 {
		return nil, readingdomain.ErrNegativeValue
	}

	readingDate, err := time.ParseInLocation("2006-01-02", candidate.ReadingDate, time.UTC)
	if err != nil {
		return nil, readingdomain.ErrInvalidDate
	}
	// Readings are historical facts only.
	if readingDate.After(s.clock.Now()) {
		return nil, readingdomain.ErrFutureDate
	}

	meter, err := s.accountRepo.FindMeterByID(ctx, s.db, candidate.MeterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, readingdomain.ErrUnknownMeter
	}

	readingType := candidate.Type
	if readingType == "" {
		readingType = readingdomain.ReadingTypeActual
	}

	var created *readingdomain.MeterReading
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateAgainstNeighbors(ctx, tx, candidate.MeterID, candidate.Value, readingDate, readingType, 0); err != nil {
			return err
		}

		now := s.clock.Now()
		reading := &readingdomain.MeterReading{
			ID:               s.genID.Generate(),
			MeterID:          candidate.MeterID,
			Value:            candidate.Value,
			ReadingDate:      readingDate,
			Type:             readingType,
			IsDistributed:    candidate.IsDistributed,
			ProcessingStatus: readingdomain.ProcessingStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.Insert(ctx, tx, reading); err != nil {
			return err
		}
		created = reading
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditSvc.LogEvent(ctx, "meter_reading", created.ID.String(), "reading.created", map[string]any{
		"meter_id":      candidate.MeterID.String(),
		"reading_value": candidate.Value,
		"reading_date":  candidate.ReadingDate,
		"reading_type":  string(readingType),
	})
	return created, nil
}

func (s *Service) UpdateValue(ctx context.Context, id snowflake.ID, value int64, readingType readingdomain.ReadingType) (*readingdomain.MeterReading, error) {
	if value < 0 {
		return nil, readingdomain.ErrNegativeValue
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, readingdomain.ErrReadingNotFound
	}

	// Billed readings are immutable; this check precedes all others.
	billed, err := s.repo.IsBilled(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if billed {
		_ = s.auditSvc.LogEvent(ctx, "meter_reading", id.String(), "reading.update_prevented", map[string]any{
			"meter_id":        existing.MeterID.String(),
			"current_value":   existing.Value,
			"attempted_value": value,
		})
		return nil, readingdomain.ErrReadingBilled
	}

	if readingType == "" {
		readingType = existing.Type
	}

	var updated *readingdomain.MeterReading
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateAgainstNeighbors(ctx, tx, existing.MeterID, value, existing.ReadingDate, readingType, id); err != nil {
			return err
		}

		existing.Value = value
		existing.Type = readingType
		existing.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return readingdomain.ErrReadingNotFound
	}

	billed, err := s.repo.IsBilled(ctx, s.db, id)
	if err != nil {
		return err
	}
	if billed {
		_ = s.auditSvc.LogEvent(ctx, "meter_reading", id.String(), "reading.delete_prevented", map[string]any{
			"meter_id":      existing.MeterID.String(),
			"reading_value": existing.Value,
		})
		return readingdomain.ErrReadingBilled
	}

	return s.repo.Delete(ctx, s.db, id)
}

// validateAgainstNeighbors enforces the duplicate-month rule and the
// monotonicity window between the preceding and following readings.
func (s *Service) validateAgainstNeighbors(
	ctx context.Context,
	tx *gorm.DB,
	meterID snowflake.ID,
	value int64,
	readingDate time.Time,
	readingType readingdomain.ReadingType,
	excludeID snowflake.ID,
) error {
	duplicate, err := s.repo.ExistsInMonth(ctx, tx, meterID, readingDate, excludeID)
	if err != nil {
		return err
	}
	if duplicate {
		_ = s.auditSvc.LogEvent(ctx, "meter", meterID.String(), "reading.duplicate_prevented", map[string]any{
			"attempted_value": value,
			"reading_date":    readingDate.Format("2006-01-02"),
		})
		return readingdomain.ErrDuplicateReading
	}

	// Corrections and resets are exempt from monotonicity.
	if readingType == readingdomain.ReadingTypeCorrection {
		return nil
	}

	preceding, err := s.repo.FindPreceding(ctx, tx, meterID, readingDate, excludeID)
	if err != nil {
		return err
	}
	if preceding != nil && value < preceding.Value {
		_ = s.auditSvc.LogEvent(ctx, "meter", meterID.String(), "reading.monotonic_violation", map[string]any{
			"previous_value":   preceding.Value,
			"attempted_value":  value,
			"violation_amount": preceding.Value - value,
		})
		return readingdomain.ErrMonotonicViolation
	}

	following, err := s.repo.FindFollowing(ctx, tx, meterID, readingDate, excludeID)
	if err != nil {
		return err
	}
	if following != nil && following.Type != readingdomain.ReadingTypeCorrection && value > following.Value {
		_ = s.auditSvc.LogEvent(ctx, "meter", meterID.String(), "reading.monotonic_violation", map[string]any{
			"next_value":       following.Value,
			"attempted_value":  value,
			"violation_amount": value - following.Value,
		})
		return readingdomain.ErrExceedsNextReading
	}

	return nil
}
