package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
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
	Repo        creditnotedomain.Repository
	BillingRepo billingdomain.Repository
	AuditSvc    auditdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        creditnotedomain.Repository
	billingRepo billingdomain.Repository
	auditSvc    auditdomain.Service
}

func NewService(p Params) creditnotedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("creditnote.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		billingRepo: p.BillingRepo,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Apply(ctx context.Context, candidate creditnotedomain.NewCreditNote) (*creditnotedomain.CreditNote, error) {
	if candidate.Amount <= 0 {
		return nil, creditnotedomain.ErrNonPositiveAmount
	}
	if candidate.Reason == "" {
		return nil, creditnotedomain.ErrMissingReason
	}
	noteType := candidate.Type
	switch noteType {
	case "":
		noteType = creditnotedomain.CreditNoteTypeOther
	case creditnotedomain.CreditNoteTypePreviousResidentDebt,
		creditnotedomain.CreditNoteTypeBillingError,
		creditnotedomain.CreditNoteTypeGoodwill,
		creditnotedomain.CreditNoteTypeOther:
	default:
		return nil, creditnotedomain.ErrInvalidType
	}

	var note *creditnotedomain.CreditNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.billingRepo.FindByID(ctx, tx, candidate.BillingID)
		if err != nil {
			return err
		}
		if bill == nil {
			return billingdomain.ErrBillNotFound
		}
		if bill.Status == billingdomain.BillingStatusVoided {
			return billingdomain.ErrBillVoided
		}

		paid, err := s.billingRepo.SumAllocations(ctx, tx, bill.ID)
		if err != nil {
			return err
		}
		credits, err := s.billingRepo.SumAppliedCredits(ctx, tx, bill.ID)
		if err != nil {
			return err
		}
		balance := billingdomain.Balance(bill.TotalAmount, paid, credits)
		if candidate.Amount > balance {
			return creditnotedomain.ErrExceedsBalance
		}

		now := s.clock.Now()
		note = &creditnotedomain.CreditNote{
			ID:        s.genID.Generate(),
			BillingID: bill.ID,
			Reference: ulid.Make().String(),
			Type:      noteType,
			Amount:    candidate.Amount,
			Reason:    candidate.Reason,
			Status:    creditnotedomain.CreditNoteStatusApplied,
			IssuedBy:  candidate.IssuedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, note); err != nil {
			return err
		}

		status := billingdomain.DeriveStatus(bill.TotalAmount, paid, credits+candidate.Amount, bill.Status)
		var paidAt *time.Time
		if status == billingdomain.BillingStatusPaid {
			paidAt = &now
		} else {
			paidAt = bill.PaidAt
		}
		return s.billingRepo.UpdateStatus(ctx, tx, bill.ID, status, paidAt)
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditSvc.LogEvent(ctx, "credit_note", note.ID.String(), "credit_note.applied", map[string]any{
		"billing_id": candidate.BillingID.String(),
		"reference":  note.Reference,
		"type":       string(noteType),
		"amount":     candidate.Amount,
		"reason":     candidate.Reason,
	})
	return note, nil
}

func (s *Service) Void(ctx context.Context, creditNoteID snowflake.ID, reason string) error {
	var billingID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := s.repo.FindByID(ctx, tx, creditNoteID)
		if err != nil {
			return err
		}
		if note == nil {
			return creditnotedomain.ErrCreditNoteNotFound
		}
		if note.Status == creditnotedomain.CreditNoteStatusVoided {
			return creditnotedomain.ErrCreditNoteVoided
		}
		billingID = note.BillingID

		now := s.clock.Now()
		if err := s.repo.Void(ctx, tx, creditNoteID, reason, now); err != nil {
			return err
		}

		bill, err := s.billingRepo.FindByID(ctx, tx, note.BillingID)
		if err != nil {
			return err
		}
		if bill == nil {
			return billingdomain.ErrBillNotFound
		}
		paid, err := s.billingRepo.SumAllocations(ctx, tx, bill.ID)
		if err != nil {
			return err
		}
		credits, err := s.billingRepo.SumAppliedCredits(ctx, tx, bill.ID)
		if err != nil {
			return err
		}
		// The sums run after the void, so the note no longer counts and
		// the bill may reopen.
		status := billingdomain.DeriveStatus(bill.TotalAmount, paid, credits, bill.Status)
		var paidAt *time.Time
		if status == billingdomain.BillingStatusPaid {
			paidAt = bill.PaidAt
		}
		return s.billingRepo.UpdateStatus(ctx, tx, bill.ID, status, paidAt)
	})
	if err != nil {
		return err
	}

	_ = s.auditSvc.LogEvent(ctx, "credit_note", creditNoteID.String(), "credit_note.voided", map[string]any{
		"billing_id": billingID.String(),
		"reason":     reason,
	})
	return nil
}

func (s *Service) ListByBilling(ctx context.Context, billingID snowflake.ID) ([]creditnotedomain.CreditNote, error) {
	return s.repo.ListByBilling(ctx, s.db, billingID)
}
