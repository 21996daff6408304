package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	"gorm.io/gorm"
)

const paymentColumns = `id, account_id, transaction_id, amount, payment_date, method, status, recorded_by, created_at, updated_at`

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, account_id, transaction_id, amount, payment_date, method, status, recorded_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.AccountID,
		payment.TransactionID,
		payment.Amount,
		payment.PaymentDate,
		payment.Method,
		payment.Status,
		payment.RecordedBy,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ?`,
		transactionID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListUnreconciled(ctx context.Context, db *gorm.DB, limit int, afterID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE status = 'received' AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		afterID,
		limit,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status paymentdomain.PaymentStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status,
		id,
	).Error
}

func (r *repo) InsertAllocation(ctx context.Context, db *gorm.DB, allocation *paymentdomain.PaymentAllocation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_allocations (id, payment_id, billing_id, amount, reversed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		allocation.ID,
		allocation.PaymentID,
		allocation.BillingID,
		allocation.Amount,
		allocation.ReversedAt,
		allocation.CreatedAt,
	).Error
}

func (r *repo) ListActiveAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]paymentdomain.PaymentAllocation, error) {
	var allocations []paymentdomain.PaymentAllocation
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_id, billing_id, amount, reversed_at, created_at
		 FROM payment_allocations
		 WHERE payment_id = ? AND reversed_at IS NULL
		 ORDER BY id ASC`,
		paymentID,
	).Scan(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repo) SumActiveAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payment_allocations
		 WHERE payment_id = ? AND reversed_at IS NULL`,
		paymentID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) ReverseAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_allocations SET reversed_at = ? WHERE payment_id = ? AND reversed_at IS NULL`,
		at,
		paymentID,
	).Error
}
