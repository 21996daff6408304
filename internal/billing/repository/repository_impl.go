package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"gorm.io/gorm"
)

const billingColumns = `id, account_id, billing_period, bill_type, original_billing_id,
	opening_balance, total_amount, late_fee, status, due_date,
	late_fee_applied_at, paid_at, void_reason, created_at, updated_at`

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *billingdomain.Billing, details []billingdomain.BillingDetail) error {
	if err := db.WithContext(ctx).Exec(
		`INSERT INTO billings (id, account_id, billing_period, bill_type, original_billing_id,
			opening_balance, total_amount, late_fee, status, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID,
		bill.AccountID,
		bill.BillingPeriod,
		bill.BillType,
		bill.OriginalBillingID,
		bill.OpeningBalance,
		bill.TotalAmount,
		bill.LateFee,
		bill.Status,
		bill.DueDate,
		bill.CreatedAt,
		bill.UpdatedAt,
	).Error; err != nil {
		return err
	}
	for _, detail := range details {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO billing_details (id, billing_id, meter_id, reading_id,
				previous_reading_value, current_reading_value, units_used, rate_per_unit, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			detail.ID,
			bill.ID,
			detail.MeterID,
			detail.ReadingID,
			detail.PreviousReadingValue,
			detail.CurrentReadingValue,
			detail.UnitsUsed,
			detail.RatePerUnit,
			detail.Amount,
			detail.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*billingdomain.Billing, error) {
	var bill billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+` FROM billings WHERE id = ?`,
		id,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindActiveByAccountPeriod(ctx context.Context, db *gorm.DB, accountID snowflake.ID, period string) (*billingdomain.Billing, error) {
	var bill billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+` FROM billings
		 WHERE account_id = ? AND billing_period = ? AND bill_type = 'regular' AND status <> 'voided'
		 LIMIT 1`,
		accountID,
		period,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindPreviousBill(ctx context.Context, db *gorm.DB, accountID snowflake.ID, period string) (*billingdomain.Billing, error) {
	var bill billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+` FROM billings
		 WHERE account_id = ? AND billing_period < ? AND bill_type = 'regular' AND status <> 'voided'
		 ORDER BY billing_period DESC
		 LIMIT 1`,
		accountID,
		period,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) ListOutstandingByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]billingdomain.Billing, error) {
	var bills []billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+` FROM billings
		 WHERE account_id = ? AND status IN ('pending', 'partially_paid', 'overdue')
		 ORDER BY due_date ASC, id ASC`,
		accountID,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListDetails(ctx context.Context, db *gorm.DB, billingID snowflake.ID) ([]billingdomain.BillingDetail, error) {
	var details []billingdomain.BillingDetail
	err := db.WithContext(ctx).Raw(
		`SELECT id, billing_id, meter_id, reading_id, previous_reading_value, current_reading_value,
			units_used, rate_per_unit, amount, created_at
		 FROM billing_details
		 WHERE billing_id = ?
		 ORDER BY id ASC`,
		billingID,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) SumAllocations(ctx context.Context, db *gorm.DB, billingID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payment_allocations
		 WHERE billing_id = ? AND reversed_at IS NULL`,
		billingID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) SumAppliedCredits(ctx context.Context, db *gorm.DB, billingID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM credit_notes
		 WHERE billing_id = ? AND status = 'applied'`,
		billingID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, billingID snowflake.ID, status billingdomain.BillingStatus, paidAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings SET status = ?, paid_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status,
		paidAt,
		billingID,
	).Error
}

func (r *repo) ApplyLateFee(ctx context.Context, db *gorm.DB, billingID snowflake.ID, fee int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings
		 SET late_fee = late_fee + ?,
		     total_amount = total_amount + ?,
		     status = 'overdue',
		     late_fee_applied_at = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND late_fee_applied_at IS NULL`,
		fee,
		fee,
		at,
		billingID,
	).Error
}

func (r *repo) Void(ctx context.Context, db *gorm.DB, billingID snowflake.ID, reason string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billings
		 SET status = 'voided', void_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		reason,
		billingID,
	).Error
}

func (r *repo) ListLateFeeCandidates(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]billingdomain.Billing, error) {
	var bills []billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+` FROM billings
		 WHERE status IN ('pending', 'partially_paid')
		 AND due_date < ?
		 AND late_fee_applied_at IS NULL
		 ORDER BY due_date ASC, id ASC
		 LIMIT ?`,
		cutoff,
		limit,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListByAccountBetween(ctx context.Context, db *gorm.DB, accountID snowflake.ID, from, to time.Time) ([]billingdomain.Billing, error) {
	var bills []billingdomain.Billing
	err := db.WithContext(ctx).Raw(
		`SELECT `+billingColumns+` FROM billings
		 WHERE account_id = ? AND created_at >= ? AND created_at < ? AND status <> 'voided'
		 ORDER BY created_at ASC, id ASC`,
		accountID,
		from,
		to,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}
