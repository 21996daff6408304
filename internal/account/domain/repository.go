package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAccount(ctx context.Context, db *gorm.DB, account *Account) error
	UpdateAccountStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status AccountStatus) error
	FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	ListActiveAccounts(ctx context.Context, db *gorm.DB, limit int, afterID snowflake.ID) ([]Account, error)

	InsertMeter(ctx context.Context, db *gorm.DB, meter *Meter) error
	UpdateMeterStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status MeterStatus) error
	FindMeterByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Meter, error)
	ListMetersByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Meter, error)
	ListActiveMetersByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Meter, error)
	CountActiveSubMeters(ctx context.Context, db *gorm.DB, parentMeterID snowflake.ID) (int64, error)
}
