package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

// NewReading carries the caller-supplied fields of a candidate reading.
type NewReading struct {
	MeterID       snowflake.ID
	Value         int64
	ReadingDate   string // YYYY-MM-DD
	Type          ReadingType
	IsDistributed bool
}

type Service interface {
	Create(ctx context.Context, candidate NewReading) (*MeterReading, error)
	UpdateValue(ctx context.Context, id snowflake.ID, value int64, readingType ReadingType) (*MeterReading, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrReadingNotFound    = errs.BusinessRule("reading_not_found")
	ErrMonotonicViolation = errs.BusinessRule("monotonic_violation")
	ErrExceedsNextReading = errs.BusinessRule("reading_exceeds_future_reading")
	ErrDuplicateReading   = errs.BusinessRule("duplicate_reading")
	ErrReadingBilled      = errs.BusinessRule("reading_already_billed")
	ErrNegativeValue      = errs.Validation("negative_reading_value")
	ErrFutureDate         = errs.Validation("future_reading_date")
	ErrInvalidDate        = errs.Validation("invalid_reading_date")
	ErrUnknownMeter       = errs.BusinessRule("unknown_meter")
)
