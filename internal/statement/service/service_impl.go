package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	"github.com/smallbiznis/aquabill/internal/idempotency"
	statementdomain "github.com/smallbiznis/aquabill/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	BillingRepo billingdomain.Repository
	AccountRepo accountdomain.Repository
	AuditSvc    auditdomain.Service
	Store       *idempotency.Store
	BillingCfg  *config.BillingConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	billingRepo billingdomain.Repository
	accountRepo accountdomain.Repository
	auditSvc    auditdomain.Service
	store       *idempotency.Store
	billingCfg  *config.BillingConfigHolder
}

func NewService(p Params) statementdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("statement.service"),
		clock:       p.Clock,
		billingRepo: p.BillingRepo,
		accountRepo: p.AccountRepo,
		auditSvc:    p.AuditSvc,
		store:       p.Store,
		billingCfg:  p.BillingCfg,
	}
}

func (s *Service) Generate(ctx context.Context, accountID snowflake.ID, from, to time.Time) (*statementdomain.Statement, error) {
	if !from.Before(to) {
		return nil, statementdomain.ErrInvalidWindow
	}

	account, err := s.accountRepo.FindAccountByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, statementdomain.ErrAccountNotFound
	}

	bills, err := s.billingRepo.ListByAccountBetween(ctx, s.db, accountID, from, to)
	if err != nil {
		return nil, err
	}

	statement := &statementdomain.Statement{
		AccountID:     accountID,
		AccountNumber: account.AccountNumber,
		From:          from,
		To:            to,
		GeneratedAt:   s.clock.Now(),
	}
	for _, bill := range bills {
		paid, err := s.billingRepo.SumAllocations(ctx, s.db, bill.ID)
		if err != nil {
			return nil, err
		}
		credits, err := s.billingRepo.SumAppliedCredits(ctx, s.db, bill.ID)
		if err != nil {
			return nil, err
		}
		balance := billingdomain.Balance(bill.TotalAmount, paid, credits)

		statement.Lines = append(statement.Lines, statementdomain.StatementLine{
			BillingID:     bill.ID,
			BillingPeriod: bill.BillingPeriod,
			BillType:      bill.BillType,
			Status:        bill.Status,
			TotalAmount:   bill.TotalAmount,
			PaidAmount:    paid,
			CreditedTotal: credits,
			Balance:       balance,
			DueDate:       bill.DueDate,
		})
		statement.TotalBilled += bill.TotalAmount
		statement.TotalPaid += paid
		statement.TotalCredited += credits
		statement.ClosingBalance += balance
	}
	return statement, nil
}

func (s *Service) MarkSent(ctx context.Context, accountID snowflake.ID, period string) (bool, error) {
	ttl := time.Duration(s.billingCfg.Get().StatementSentTTLSeconds) * time.Second
	key := fmt.Sprintf("statement:sent:%s:%s", accountID.String(), period)

	first, err := s.store.MarkOnce(ctx, key, ttl)
	if err != nil {
		return false, err
	}
	if !first {
		s.log.Debug("statement already sent",
			zap.String("account_id", accountID.String()),
			zap.String("period", period),
		)
		return false, nil
	}

	_ = s.auditSvc.LogEvent(ctx, "statement", accountID.String(), "statement.sent", map[string]any{
		"account_id": accountID.String(),
		"period":     period,
	})
	return true, nil
}
