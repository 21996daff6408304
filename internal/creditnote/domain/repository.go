package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, note *CreditNote) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CreditNote, error)
	ListByBilling(ctx context.Context, db *gorm.DB, billingID snowflake.ID) ([]CreditNote, error)
	Void(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, at time.Time) error
}
