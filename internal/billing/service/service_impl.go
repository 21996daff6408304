package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	chargedomain "github.com/smallbiznis/aquabill/internal/charge/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	pkgdb "github.com/smallbiznis/aquabill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lateFeeBatchSize = 500

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        billingdomain.Repository
	ReadingRepo readingdomain.Repository
	AccountRepo accountdomain.Repository
	ChargeSvc   chargedomain.Service
	AuditSvc    auditdomain.Service
	BillingCfg  *config.BillingConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        billingdomain.Repository
	readingRepo readingdomain.Repository
	accountRepo accountdomain.Repository
	chargeSvc   chargedomain.Service
	auditSvc    auditdomain.Service
	billingCfg  *config.BillingConfigHolder
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("billing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		readingRepo: p.ReadingRepo,
		accountRepo: p.AccountRepo,
		chargeSvc:   p.ChargeSvc,
		auditSvc:    p.AuditSvc,
		billingCfg:  p.BillingCfg,
	}
}

func (s *Service) GenerateMonthlyBill(ctx context.Context, accountID snowflake.ID, period string) (*billingdomain.Billing, error) {
	periodStart, periodEnd, err := billingdomain.ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, billingdomain.ErrAccountNotFound
	}
	if account.Status != accountdomain.AccountStatusActive {
		return nil, billingdomain.ErrAccountNotBillable
	}

	meters, err := s.accountRepo.ListActiveMetersByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if len(meters) == 0 {
		return nil, billingdomain.ErrNoActiveMeters
	}

	// Early check for a friendlier error; the partial unique index is what
	// actually guarantees uniqueness under concurrent generation.
	existing, err := s.repo.FindActiveByAccountPeriod(ctx, s.db, accountID, period)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, billingdomain.ErrDuplicateBilling
	}

	openingBalance, err := s.carryForwardBalance(ctx, accountID, period)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	details, billedReadingIDs, err := s.buildDetails(ctx, meters, periodStart, periodEnd, now)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 && openingBalance == 0 {
		return nil, billingdomain.ErrNoBillableConsumption
	}

	total := openingBalance
	for _, detail := range details {
		total += detail.Amount
	}

	bill := &billingdomain.Billing{
		ID:             s.genID.Generate(),
		AccountID:      accountID,
		BillingPeriod:  period,
		BillType:       billingdomain.BillTypeRegular,
		OpeningBalance: openingBalance,
		TotalAmount:    total,
		Status:         billingdomain.BillingStatusPending,
		DueDate:        now.AddDate(0, 0, s.billingCfg.Get().DueDays),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, bill, details); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return billingdomain.ErrDuplicateBilling
			}
			return err
		}
		return s.readingRepo.MarkBilled(ctx, tx, billedReadingIDs)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bill generated",
		zap.String("billing_id", bill.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("billing_period", period),
		zap.Int64("total_amount", total),
		zap.Int("detail_count", len(details)),
	)
	_ = s.auditSvc.LogEvent(ctx, "billing", bill.ID.String(), "billing.generated", map[string]any{
		"account_id":      accountID.String(),
		"billing_period":  period,
		"opening_balance": openingBalance,
		"total_amount":    total,
		"due_date":        bill.DueDate.Format(time.RFC3339),
	})
	return bill, nil
}

// buildDetails resolves the consumption of each active meter for the period.
// Meters with no reading inside the period are skipped; they will be picked
// up by the period that finally receives a reading.
func (s *Service) buildDetails(
	ctx context.Context,
	meters []accountdomain.Meter,
	periodStart, periodEnd time.Time,
	now time.Time,
) ([]billingdomain.BillingDetail, []snowflake.ID, error) {
	var details []billingdomain.BillingDetail
	var readingIDs []snowflake.ID
	for _, meter := range meters {
		current, err := s.readingRepo.FindLatestInRange(ctx, s.db, meter.ID, periodStart, periodEnd)
		if err != nil {
			return nil, nil, err
		}
		if current == nil {
			continue
		}

		var previousValue int64
		previous, err := s.readingRepo.FindLatestBefore(ctx, s.db, meter.ID, periodStart)
		if err != nil {
			return nil, nil, err
		}
		if previous != nil {
			previousValue = previous.Value
		}

		units := current.Value - previousValue
		if units < 0 {
			// Meter replacement or corrected rollback restarts the counter.
			units = current.Value
		}

		charge, err := s.chargeSvc.Calculate(ctx, meter.Type, units, periodStart)
		if err != nil {
			return nil, nil, err
		}

		rate := charge.BlendedRate(units)
		details = append(details, billingdomain.BillingDetail{
			ID:                   s.genID.Generate(),
			MeterID:              meter.ID,
			ReadingID:            current.ID,
			PreviousReadingValue: previousValue,
			CurrentReadingValue:  current.Value,
			UnitsUsed:            units,
			RatePerUnit:          rate,
			Amount:               charge.Subtotal,
			CreatedAt:            now,
		})
		readingIDs = append(readingIDs, current.ID)
	}
	return details, readingIDs, nil
}

// carryForwardBalance derives the unpaid remainder of the previous bill.
func (s *Service) carryForwardBalance(ctx context.Context, accountID snowflake.ID, period string) (int64, error) {
	previous, err := s.repo.FindPreviousBill(ctx, s.db, accountID, period)
	if err != nil {
		return 0, err
	}
	if previous == nil {
		return 0, nil
	}
	return s.balanceOf(ctx, s.db, previous)
}

func (s *Service) balanceOf(ctx context.Context, db *gorm.DB, bill *billingdomain.Billing) (int64, error) {
	paid, err := s.repo.SumAllocations(ctx, db, bill.ID)
	if err != nil {
		return 0, err
	}
	credits, err := s.repo.SumAppliedCredits(ctx, db, bill.ID)
	if err != nil {
		return 0, err
	}
	return billingdomain.Balance(bill.TotalAmount, paid, credits), nil
}

func (s *Service) OutstandingBalance(ctx context.Context, billingID snowflake.ID) (int64, error) {
	bill, err := s.repo.FindByID(ctx, s.db, billingID)
	if err != nil {
		return 0, err
	}
	if bill == nil {
		return 0, billingdomain.ErrBillNotFound
	}
	return s.balanceOf(ctx, s.db, bill)
}

func (s *Service) ApplyLateFees(ctx context.Context, asOf time.Time) (int, error) {
	grace := s.billingCfg.Get().LateFee.GraceDays
	cutoff := asOf.AddDate(0, 0, -grace)

	candidates, err := s.repo.ListLateFeeCandidates(ctx, s.db, cutoff, lateFeeBatchSize)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, bill := range candidates {
		daysOverdue := int(asOf.Sub(bill.DueDate).Hours() / 24)
		fee := s.chargeSvc.LateFee(bill.TotalAmount, daysOverdue)
		if fee <= 0 {
			continue
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.repo.ApplyLateFee(ctx, tx, bill.ID, fee, asOf)
		})
		if err != nil {
			s.log.Error("late fee application failed",
				zap.String("billing_id", bill.ID.String()),
				zap.Error(err),
			)
			continue
		}

		applied++
		_ = s.auditSvc.LogEvent(ctx, "billing", bill.ID.String(), "billing.late_fee_applied", map[string]any{
			"account_id":   bill.AccountID.String(),
			"late_fee":     fee,
			"days_overdue": daysOverdue,
		})
	}
	return applied, nil
}

func (s *Service) VoidBill(ctx context.Context, billingID snowflake.ID, reason string) error {
	bill, err := s.repo.FindByID(ctx, s.db, billingID)
	if err != nil {
		return err
	}
	if bill == nil {
		return billingdomain.ErrBillNotFound
	}
	if bill.Status == billingdomain.BillingStatusVoided {
		return billingdomain.ErrBillVoided
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Void(ctx, tx, billingID, reason)
	})
	if err != nil {
		return err
	}

	_ = s.auditSvc.LogEvent(ctx, "billing", billingID.String(), "billing.voided", map[string]any{
		"account_id":     bill.AccountID.String(),
		"billing_period": bill.BillingPeriod,
		"reason":         reason,
	})
	return nil
}
