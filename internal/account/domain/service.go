package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type Service interface {
	CreateAccount(ctx context.Context, accountNumber, name string) (*Account, error)
	Suspend(ctx context.Context, accountID snowflake.ID) error
	Reactivate(ctx context.Context, accountID snowflake.ID) error

	RegisterMeter(ctx context.Context, accountID snowflake.ID, meterNumber string, meterType MeterType, parentMeterID *snowflake.ID) (*Meter, error)
	ActivateMeter(ctx context.Context, meterID snowflake.ID) error
	DeactivateMeter(ctx context.Context, meterID snowflake.ID) error
}

var (
	ErrAccountNotFound     = errs.BusinessRule("account_not_found")
	ErrDuplicateAccount    = errs.BusinessRule("duplicate_account_number")
	ErrMeterNotFound       = errs.BusinessRule("meter_not_found")
	ErrDuplicateMeter      = errs.BusinessRule("duplicate_meter_number")
	ErrParentMeterInactive = errs.BusinessRule("parent_meter_inactive")
	ErrActiveSubMeters     = errs.BusinessRule("bulk_meter_has_active_sub_meters")
	ErrInvalidAccountState = errs.BusinessRule("invalid_account_state")
)
