package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*Payment, error)
	// ListUnreconciled returns received payments oldest first for the
	// reconciliation job, keyset-paged by id.
	ListUnreconciled(ctx context.Context, db *gorm.DB, limit int, afterID snowflake.ID) ([]Payment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status PaymentStatus) error

	InsertAllocation(ctx context.Context, db *gorm.DB, allocation *PaymentAllocation) error
	ListActiveAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]PaymentAllocation, error)
	SumActiveAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (int64, error)
	ReverseAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, at time.Time) error
}
