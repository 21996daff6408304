package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	chargedomain "github.com/smallbiznis/aquabill/internal/charge/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	rebillingdomain "github.com/smallbiznis/aquabill/internal/rebilling/domain"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	BillingRepo    billingdomain.Repository
	ReadingRepo    readingdomain.Repository
	AccountRepo    accountdomain.Repository
	CreditNoteRepo creditnotedomain.Repository
	ChargeSvc      chargedomain.Service
	AuditSvc       auditdomain.Service
	BillingCfg     *config.BillingConfigHolder
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	billingRepo    billingdomain.Repository
	readingRepo    readingdomain.Repository
	accountRepo    accountdomain.Repository
	creditNoteRepo creditnotedomain.Repository
	chargeSvc      chargedomain.Service
	auditSvc       auditdomain.Service
	billingCfg     *config.BillingConfigHolder
}

func NewService(p Params) rebillingdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("rebilling.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		billingRepo:    p.BillingRepo,
		readingRepo:    p.ReadingRepo,
		accountRepo:    p.AccountRepo,
		creditNoteRepo: p.CreditNoteRepo,
		chargeSvc:      p.ChargeSvc,
		auditSvc:       p.AuditSvc,
		billingCfg:     p.BillingCfg,
	}
}

func (s *Service) Rebill(ctx context.Context, billingID snowflake.ID, reason string) (*rebillingdomain.RebillResult, error) {
	original, err := s.billingRepo.FindByID(ctx, s.db, billingID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, billingdomain.ErrBillNotFound
	}
	if original.Status == billingdomain.BillingStatusVoided {
		return nil, billingdomain.ErrBillVoided
	}
	if original.BillType == billingdomain.BillTypeAdjustment {
		return nil, rebillingdomain.ErrAdjustmentNotRebillable
	}

	periodStart, periodEnd, err := billingdomain.ParsePeriod(original.BillingPeriod)
	if err != nil {
		return nil, err
	}

	originalDetails, err := s.billingRepo.ListDetails(ctx, s.db, billingID)
	if err != nil {
		return nil, err
	}
	originalConsumption := int64(0)
	for _, detail := range originalDetails {
		originalConsumption += detail.Amount
	}

	newDetails, newConsumption, err := s.recompute(ctx, originalDetails, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	difference := newConsumption - originalConsumption
	if difference == 0 {
		return nil, rebillingdomain.ErrNoAdjustmentNeeded
	}

	result := &rebillingdomain.RebillResult{
		OriginalBillingID: billingID,
		Difference:        difference,
	}
	now := s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if difference > 0 {
			originalID := original.ID
			adjustment := &billingdomain.Billing{
				ID:                s.genID.Generate(),
				AccountID:         original.AccountID,
				BillingPeriod:     original.BillingPeriod,
				BillType:          billingdomain.BillTypeAdjustment,
				OriginalBillingID: &originalID,
				TotalAmount:       difference,
				Status:            billingdomain.BillingStatusPending,
				DueDate:           now.AddDate(0, 0, s.billingCfg.Get().DueDays),
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := s.billingRepo.Insert(ctx, tx, adjustment, newDetails); err != nil {
				return err
			}
			result.Adjustment = adjustment
			return nil
		}

		// Overcharge: credit the original bill and re-derive its status.
		// A credit note may never exceed what is still outstanding, so the
		// note is capped at the derived balance and whatever the customer
		// already paid beyond the corrected total is owed back to them.
		paid, err := s.billingRepo.SumAllocations(ctx, tx, original.ID)
		if err != nil {
			return err
		}
		credits, err := s.billingRepo.SumAppliedCredits(ctx, tx, original.ID)
		if err != nil {
			return err
		}
		balance := billingdomain.Balance(original.TotalAmount, paid, credits)

		creditAmount := -difference
		if creditAmount > balance {
			result.RefundDue = creditAmount - balance
			creditAmount = balance
		}
		if creditAmount == 0 {
			return nil
		}

		note := &creditnotedomain.CreditNote{
			ID:        s.genID.Generate(),
			BillingID: original.ID,
			Reference: ulid.Make().String(),
			Type:      creditnotedomain.CreditNoteTypeBillingError,
			Amount:    creditAmount,
			Reason:    reason,
			Status:    creditnotedomain.CreditNoteStatusApplied,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.creditNoteRepo.Insert(ctx, tx, note); err != nil {
			return err
		}

		status := billingdomain.DeriveStatus(original.TotalAmount, paid, credits+creditAmount, original.Status)
		var paidAt *time.Time
		if status == billingdomain.BillingStatusPaid {
			paidAt = &now
		}
		if err := s.billingRepo.UpdateStatus(ctx, tx, original.ID, status, paidAt); err != nil {
			return err
		}
		result.CreditNote = note
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bill recomputed",
		zap.String("billing_id", billingID.String()),
		zap.Int64("difference", difference),
		zap.String("reason", reason),
	)
	_ = s.auditSvc.LogEvent(ctx, "billing", billingID.String(), "billing.rebilled", map[string]any{
		"account_id":     original.AccountID.String(),
		"billing_period": original.BillingPeriod,
		"difference":     difference,
		"reason":         reason,
	})
	if result.RefundDue > 0 {
		// The overpaid portion cannot be absorbed by a credit note on a
		// settled bill; it needs a manual refund.
		_ = s.auditSvc.LogEvent(ctx, "billing", billingID.String(), "billing.refund_due", map[string]any{
			"account_id": original.AccountID.String(),
			"amount":     result.RefundDue,
			"reason":     reason,
		})
	}
	return result, nil
}

// recompute prices the original bill's meters against the readings and
// tariffs as they stand now. Correction readings entered after the original
// run change the outcome; that is the point of rebilling.
func (s *Service) recompute(
	ctx context.Context,
	originalDetails []billingdomain.BillingDetail,
	periodStart, periodEnd time.Time,
) ([]billingdomain.BillingDetail, int64, error) {
	var details []billingdomain.BillingDetail
	total := int64(0)
	now := s.clock.Now()

	for _, originalDetail := range originalDetails {
		meter, err := s.accountRepo.FindMeterByID(ctx, s.db, originalDetail.MeterID)
		if err != nil {
			return nil, 0, err
		}
		if meter == nil {
			continue
		}

		current, err := s.readingRepo.FindLatestInRange(ctx, s.db, meter.ID, periodStart, periodEnd)
		if err != nil {
			return nil, 0, err
		}
		if current == nil {
			continue
		}

		var previousValue int64
		previous, err := s.readingRepo.FindLatestBefore(ctx, s.db, meter.ID, periodStart)
		if err != nil {
			return nil, 0, err
		}
		if previous != nil {
			previousValue = previous.Value
		}

		units := current.Value - previousValue
		if units < 0 {
			units = current.Value
		}

		charge, err := s.chargeSvc.Calculate(ctx, meter.Type, units, periodStart)
		if err != nil {
			return nil, 0, err
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
		total += charge.Subtotal
	}
	return details, total, nil
}
