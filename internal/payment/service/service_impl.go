package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	pkgdb "github.com/smallbiznis/aquabill/pkg/db"
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
	Repo        paymentdomain.Repository
	BillingRepo billingdomain.Repository
	AuditSvc    auditdomain.Service
	BillingCfg  *config.BillingConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentdomain.Repository
	billingRepo billingdomain.Repository
	auditSvc    auditdomain.Service
	billingCfg  *config.BillingConfigHolder
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		billingRepo: p.BillingRepo,
		auditSvc:    p.AuditSvc,
		billingCfg:  p.BillingCfg,
	}
}

func (s *Service) RecordPayment(ctx context.Context, candidate paymentdomain.NewPayment) (*paymentdomain.Payment, error) {
	if candidate.Amount <= 0 {
		return nil, paymentdomain.ErrNonPositiveAmount
	}

	transactionID := candidate.TransactionID
	if transactionID == "" {
		// Walk-in cash payments have no external reference.
		transactionID = uuid.NewString()
	}

	now := s.clock.Now()
	paymentDate := candidate.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}

	payment := &paymentdomain.Payment{
		ID:            s.genID.Generate(),
		AccountID:     candidate.AccountID,
		TransactionID: transactionID,
		Amount:        candidate.Amount,
		PaymentDate:   paymentDate,
		Method:        candidate.Method,
		Status:        paymentdomain.PaymentStatusReceived,
		RecordedBy:    candidate.RecordedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, paymentdomain.ErrDuplicatePayment
		}
		return nil, err
	}

	_ = s.auditSvc.LogEvent(ctx, "payment", payment.ID.String(), "payment.recorded", map[string]any{
		"account_id":     candidate.AccountID.String(),
		"transaction_id": transactionID,
		"amount":         candidate.Amount,
		"method":         string(candidate.Method),
	})
	return payment, nil
}

func (s *Service) Reconcile(ctx context.Context, paymentID snowflake.ID, force bool) (*paymentdomain.ReconcileResult, error) {
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if payment.Status == paymentdomain.PaymentStatusAllocated && !force {
		return nil, paymentdomain.ErrAlreadyReconciled
	}

	result := &paymentdomain.ReconcileResult{PaymentID: paymentID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocated, err := s.repo.SumActiveAllocations(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		remaining := payment.Amount - allocated

		bills, err := s.billingRepo.ListOutstandingByAccount(ctx, tx, payment.AccountID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for i := range bills {
			if remaining <= 0 {
				break
			}
			bill := &bills[i]

			paid, err := s.billingRepo.SumAllocations(ctx, tx, bill.ID)
			if err != nil {
				return err
			}
			credits, err := s.billingRepo.SumAppliedCredits(ctx, tx, bill.ID)
			if err != nil {
				return err
			}
			balance := billingdomain.Balance(bill.TotalAmount, paid, credits)
			if balance <= 0 {
				continue
			}

			amount := remaining
			if amount > balance {
				amount = balance
			}
			allocation := paymentdomain.PaymentAllocation{
				ID:        s.genID.Generate(),
				PaymentID: paymentID,
				BillingID: bill.ID,
				Amount:    amount,
				CreatedAt: now,
			}
			if err := s.repo.InsertAllocation(ctx, tx, &allocation); err != nil {
				return err
			}

			status := billingdomain.DeriveStatus(bill.TotalAmount, paid+amount, credits, bill.Status)
			var paidAt *time.Time
			if status == billingdomain.BillingStatusPaid {
				paidAt = &now
			}
			if err := s.billingRepo.UpdateStatus(ctx, tx, bill.ID, status, paidAt); err != nil {
				return err
			}

			result.Allocations = append(result.Allocations, allocation)
			remaining -= amount
		}

		result.Unallocated = remaining
		result.Status = paymentdomain.ReconciliationStatusReconciled
		if remaining > 0 {
			result.Status = paymentdomain.ReconciliationStatusPartial
		}
		return s.repo.UpdateStatus(ctx, tx, paymentID, paymentdomain.PaymentStatusAllocated)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment reconciled",
		zap.String("payment_id", paymentID.String()),
		zap.String("account_id", payment.AccountID.String()),
		zap.Int("allocations", len(result.Allocations)),
		zap.Int64("unallocated", result.Unallocated),
	)
	_ = s.auditSvc.LogEvent(ctx, "payment", paymentID.String(), "payment.reconciled", map[string]any{
		"account_id":  payment.AccountID.String(),
		"amount":      payment.Amount,
		"allocations": len(result.Allocations),
		"unallocated": result.Unallocated,
	})
	if result.Unallocated > 0 {
		// The remainder stays on the payment as account credit.
		_ = s.auditSvc.LogEvent(ctx, "payment", paymentID.String(), "payment.overpayment", map[string]any{
			"account_id": payment.AccountID.String(),
			"amount":     result.Unallocated,
		})
	}
	return result, nil
}

func (s *Service) ReverseReconciliation(ctx context.Context, paymentID snowflake.ID, actor paymentdomain.Actor, reason string) error {
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return paymentdomain.ErrPaymentNotFound
	}
	if err := s.authorizeReversal(payment, actor); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocations, err := s.repo.ListActiveAllocations(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if len(allocations) == 0 {
			return paymentdomain.ErrNothingToReverse
		}

		now := s.clock.Now()
		if err := s.repo.ReverseAllocations(ctx, tx, paymentID, now); err != nil {
			return err
		}

		for _, allocation := range allocations {
			bill, err := s.billingRepo.FindByID(ctx, tx, allocation.BillingID)
			if err != nil {
				return err
			}
			if bill == nil {
				continue
			}
			paid, err := s.billingRepo.SumAllocations(ctx, tx, bill.ID)
			if err != nil {
				return err
			}
			credits, err := s.billingRepo.SumAppliedCredits(ctx, tx, bill.ID)
			if err != nil {
				return err
			}
			status := billingdomain.DeriveStatus(bill.TotalAmount, paid, credits, bill.Status)
			var paidAt *time.Time
			if status == billingdomain.BillingStatusPaid {
				paidAt = bill.PaidAt
			}
			if err := s.billingRepo.UpdateStatus(ctx, tx, bill.ID, status, paidAt); err != nil {
				return err
			}
		}

		return s.repo.UpdateStatus(ctx, tx, paymentID, paymentdomain.PaymentStatusReceived)
	})
	if err != nil {
		return err
	}

	_ = s.auditSvc.LogEvent(ctx, "payment", paymentID.String(), "payment.reconciliation_reversed", map[string]any{
		"account_id": payment.AccountID.String(),
		"actor":      actor.UserID,
		"reason":     reason,
	})
	return nil
}

func (s *Service) FindByID(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.Payment, error) {
	return s.repo.FindByID(ctx, s.db, paymentID)
}

func (s *Service) authorizeReversal(payment *paymentdomain.Payment, actor paymentdomain.Actor) error {
	switch s.billingCfg.Get().Reversal {
	case config.ReversalPolicyAnyone:
		return nil
	case config.ReversalPolicySameUser:
		if actor.Role == "admin" || actor.UserID == payment.RecordedBy {
			return nil
		}
	default:
		if actor.Role == "admin" {
			return nil
		}
	}
	return paymentdomain.ErrReversalForbidden
}
