package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/pkg/db"
	"github.com/smallbiznis/aquabill/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     accountdomain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     accountdomain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("account.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreateAccount(ctx context.Context, accountNumber, name string) (*accountdomain.Account, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, errs.Validation("account_number_required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("account_name_required")
	}

	now := s.clock.Now()
	account := &accountdomain.Account{
		ID:            s.genID.Generate(),
		AccountNumber: accountNumber,
		Name:          name,
		Status:        accountdomain.AccountStatusActive,
		ActivatedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.InsertAccount(ctx, s.db, account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrDuplicateAccount
		}
		return nil, err
	}

	_ = s.auditSvc.LogEvent(ctx, "account", account.ID.String(), "account.created", map[string]any{
		"account_number": accountNumber,
	})
	return account, nil
}

func (s *Service) Suspend(ctx context.Context, accountID snowflake.ID) error {
	account, err := s.repo.FindAccountByID(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return accountdomain.ErrAccountNotFound
	}
	if account.Status != accountdomain.AccountStatusActive {
		return accountdomain.ErrInvalidAccountState
	}

	if err := s.repo.UpdateAccountStatus(ctx, s.db, accountID, accountdomain.AccountStatusSuspended); err != nil {
		return err
	}
	_ = s.auditSvc.LogEvent(ctx, "account", accountID.String(), "account.suspended", map[string]any{
		"suspended_at": s.clock.Now().Format(time.RFC3339),
	})
	return nil
}

func (s *Service) Reactivate(ctx context.Context, accountID snowflake.ID) error {
	account, err := s.repo.FindAccountByID(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return accountdomain.ErrAccountNotFound
	}
	if account.Status == accountdomain.AccountStatusActive {
		return accountdomain.ErrInvalidAccountState
	}

	if err := s.repo.UpdateAccountStatus(ctx, s.db, accountID, accountdomain.AccountStatusActive); err != nil {
		return err
	}
	_ = s.auditSvc.LogEvent(ctx, "account", accountID.String(), "account.reactivated", nil)
	return nil
}

func (s *Service) RegisterMeter(ctx context.Context, accountID snowflake.ID, meterNumber string, meterType accountdomain.MeterType, parentMeterID *snowflake.ID) (*accountdomain.Meter, error) {
	meterNumber = strings.TrimSpace(meterNumber)
	if meterNumber == "" {
		return nil, errs.Validation("meter_number_required")
	}

	account, err := s.repo.FindAccountByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}

	if parentMeterID != nil {
		parent, err := s.repo.FindMeterByID(ctx, s.db, *parentMeterID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, accountdomain.ErrMeterNotFound
		}
		if parent.Status != accountdomain.MeterStatusActive {
			return nil, accountdomain.ErrParentMeterInactive
		}
	}

	now := s.clock.Now()
	meter := &accountdomain.Meter{
		ID:            s.genID.Generate(),
		AccountID:     accountID,
		MeterNumber:   meterNumber,
		Status:        accountdomain.MeterStatusActive,
		Type:          meterType,
		ParentMeterID: parentMeterID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if meter.Type == "" {
		meter.Type = accountdomain.MeterTypeIndividual
	}

	if err := s.repo.InsertMeter(ctx, s.db, meter); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrDuplicateMeter
		}
		return nil, err
	}

	_ = s.auditSvc.LogEvent(ctx, "meter", meter.ID.String(), "meter.registered", map[string]any{
		"meter_number": meterNumber,
		"account_id":   accountID.String(),
	})
	return meter, nil
}

func (s *Service) ActivateMeter(ctx context.Context, meterID snowflake.ID) error {
	meter, err := s.repo.FindMeterByID(ctx, s.db, meterID)
	if err != nil {
		return err
	}
	if meter == nil {
		return accountdomain.ErrMeterNotFound
	}

	// A sub-meter may only activate while its bulk parent is active.
	if meter.ParentMeterID != nil {
		parent, err := s.repo.FindMeterByID(ctx, s.db, *meter.ParentMeterID)
		if err != nil {
			return err
		}
		if parent == nil || parent.Status != accountdomain.MeterStatusActive {
			return accountdomain.ErrParentMeterInactive
		}
	}

	return s.repo.UpdateMeterStatus(ctx, s.db, meterID, accountdomain.MeterStatusActive)
}

func (s *Service) DeactivateMeter(ctx context.Context, meterID snowflake.ID) error {
	meter, err := s.repo.FindMeterByID(ctx, s.db, meterID)
	if err != nil {
		return err
	}
	if meter == nil {
		return accountdomain.ErrMeterNotFound
	}

	if meter.Type == accountdomain.MeterTypeBulk {
		active, err := s.repo.CountActiveSubMeters(ctx, s.db, meterID)
		if err != nil {
			return err
		}
		if active > 0 {
			return accountdomain.ErrActiveSubMeters
		}
	}

	return s.repo.UpdateMeterStatus(ctx, s.db, meterID, accountdomain.MeterStatusInactive)
}
