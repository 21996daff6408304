// Package scheduler drives the recurring billing jobs: monthly bill
// generation, payment reconciliation, late fees, and statement delivery.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/idempotency"
	obsmetrics "github.com/smallbiznis/aquabill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	statementdomain "github.com/smallbiznis/aquabill/internal/statement/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	BillingSvc   billingdomain.Service
	PaymentSvc   paymentdomain.Service
	StatementSvc statementdomain.Service
	PaymentRepo  paymentdomain.Repository
	AccountRepo  accountdomain.Repository
	Locker       *idempotency.Locker `optional:"true"`
	Config       Config              `optional:"true"`
}

type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	billingSvc   billingdomain.Service
	paymentSvc   paymentdomain.Service
	statementSvc statementdomain.Service
	paymentRepo  paymentdomain.Repository
	accountRepo  accountdomain.Repository
	locker       *idempotency.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.BillingSvc == nil || p.PaymentSvc == nil || p.StatementSvc == nil || p.PaymentRepo == nil || p.AccountRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		billingSvc:   p.BillingSvc,
		paymentSvc:   p.PaymentSvc,
		statementSvc: p.StatementSvc,
		paymentRepo:  p.PaymentRepo,
		accountRepo:  p.AccountRepo,
		locker:       p.Locker,
	}, nil
}

// runJob wraps a job with a timeout, cross-replica lock, and metrics. A
// deadline hit is a soft failure: the next tick resumes where the batch
// loop stopped.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	lockKey := "scheduler:job:" + name
	token, owner, err := s.locker.TryLock(ctx, lockKey, timeout+s.cfg.RunInterval)
	if err != nil {
		return fmt.Errorf("%s: lock: %w", name, err)
	}
	if !owner {
		s.log.Debug("job held by another replica", zap.String("job", name))
		return nil
	}
	defer func() { _ = s.locker.Release(context.WithoutCancel(ctx), lockKey, token) }()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	// Jobs are idempotent, so a retry reruns the remaining work. Business
	// and validation errors are counted as skips inside the job and never
	// reach here.
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			break
		}
		if attempt >= s.cfg.JobRetries {
			s.log.Error("job failed after exhausting retries, manual follow-up required",
				zap.String("job", name),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			break
		}
		s.log.Warn("job attempt failed, retrying",
			zap.String("job", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", s.cfg.RetryBackoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(s.cfg.RetryBackoff):
			continue
		}
		break
	}

	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

// pause spaces out items within a batch.
func (s *Scheduler) pause(ctx context.Context) {
	if s.cfg.ItemDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.ItemDelay):
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"generate_bills", s.GenerateBillsJob},
		{"reconcile_payments", s.ReconcilePaymentsJob},
		{"late_fees", s.LateFeesJob},
		{"statements", s.StatementsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		name, run := job.Name, job.Run
		err = errors.Join(err, s.runJob(parent, name, s.cfg.JobTimeout, run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// GenerateBillsJob bills every active account for the month that just
// ended. Accounts already billed, without meters, or without consumption
// are skipped, not failed; the partial unique index keeps concurrent
// replicas from double-billing.
func (s *Scheduler) GenerateBillsJob(ctx context.Context) error {
	period := previousPeriod(s.clock.Now())
	jobName := "generate_bills"
	schedMetrics := obsmetrics.Scheduler()
	var jobErr error
	processed := 0

	afterID := snowflake.ID(0)
	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		accounts, err := s.accountRepo.ListActiveAccounts(ctx, s.db, s.cfg.AccountBatchSize, afterID)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(accounts) == 0 {
			break
		}
		afterID = accounts[len(accounts)-1].ID

		for i, account := range accounts {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}
			if i > 0 {
				s.pause(ctx)
			}

			bill, err := s.billingSvc.GenerateMonthlyBill(ctx, account.ID, period)
			if err != nil {
				if errs.IsBusinessRule(err) || errs.IsValidation(err) {
					schedMetrics.IncItemSkipped(jobName, errs.Code(err))
					continue
				}
				jobErr = errors.Join(jobErr, err)
				s.log.Error("bill generation failed",
					zap.String("job", jobName),
					zap.String("account_id", account.ID.String()),
					zap.String("period", period),
					zap.Error(err),
				)
				continue
			}
			processed++
			s.log.Debug("bill generated",
				zap.String("job", jobName),
				zap.String("billing_id", bill.ID.String()),
				zap.String("account_id", account.ID.String()),
			)
		}
	}

	schedMetrics.AddBatchProcessed(jobName, "bills", processed)
	return jobErr
}

// ReconcilePaymentsJob allocates every received payment against its
// account's outstanding bills.
func (s *Scheduler) ReconcilePaymentsJob(ctx context.Context) error {
	jobName := "reconcile_payments"
	schedMetrics := obsmetrics.Scheduler()
	var jobErr error
	processed := 0

	afterID := snowflake.ID(0)
	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		payments, err := s.paymentRepo.ListUnreconciled(ctx, s.db, s.cfg.PaymentBatchSize, afterID)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(payments) == 0 {
			break
		}
		afterID = payments[len(payments)-1].ID

		for i, payment := range payments {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}
			if i > 0 {
				s.pause(ctx)
			}

			if _, err := s.paymentSvc.Reconcile(ctx, payment.ID, false); err != nil {
				if errs.IsBusinessRule(err) {
					schedMetrics.IncItemSkipped(jobName, errs.Code(err))
					continue
				}
				jobErr = errors.Join(jobErr, err)
				s.log.Error("payment reconciliation failed",
					zap.String("job", jobName),
					zap.String("payment_id", payment.ID.String()),
					zap.Error(err),
				)
				continue
			}
			processed++
		}
	}

	schedMetrics.AddBatchProcessed(jobName, "payments", processed)
	return jobErr
}

// LateFeesJob marks eligible bills overdue and applies the configured fee.
func (s *Scheduler) LateFeesJob(ctx context.Context) error {
	applied, err := s.billingSvc.ApplyLateFees(ctx, s.clock.Now())
	obsmetrics.Scheduler().AddBatchProcessed("late_fees", "bills", applied)
	return err
}

// StatementsJob assembles last month's statement for every active account
// and marks it sent. The sent marker suppresses duplicates when the job
// reruns inside the idempotency window.
func (s *Scheduler) StatementsJob(ctx context.Context) error {
	jobName := "statements"
	schedMetrics := obsmetrics.Scheduler()
	now := s.clock.Now()
	period := previousPeriod(now)
	from, _, err := billingdomain.ParsePeriod(period)
	if err != nil {
		return err
	}
	// The bill for last month is created after the month closed, so the
	// window runs from the period start up to now.
	to := now

	var jobErr error
	processed := 0
	afterID := snowflake.ID(0)
	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		accounts, err := s.accountRepo.ListActiveAccounts(ctx, s.db, s.cfg.AccountBatchSize, afterID)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(accounts) == 0 {
			break
		}
		afterID = accounts[len(accounts)-1].ID

		for i, account := range accounts {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}
			if i > 0 {
				s.pause(ctx)
			}

			statement, err := s.statementSvc.Generate(ctx, account.ID, from, to)
			if err != nil {
				if errs.IsBusinessRule(err) || errs.IsValidation(err) {
					schedMetrics.IncItemSkipped(jobName, errs.Code(err))
					continue
				}
				jobErr = errors.Join(jobErr, err)
				continue
			}
			if len(statement.Lines) == 0 {
				continue
			}

			first, err := s.statementSvc.MarkSent(ctx, account.ID, period)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				continue
			}
			if !first {
				continue
			}
			processed++
		}
	}

	schedMetrics.AddBatchProcessed(jobName, "statements", processed)
	return jobErr
}

// previousPeriod returns the YYYY-MM period of the month before t.
func previousPeriod(t time.Time) string {
	t = t.UTC()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, -1, 0).Format("2006-01")
}
