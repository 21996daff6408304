package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

func (r *repo) InsertAccount(ctx context.Context, db *gorm.DB, a *accountdomain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (id, account_number, name, status, activated_at, suspended_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.AccountNumber,
		a.Name,
		a.Status,
		a.ActivatedAt,
		a.SuspendedAt,
		a.CreatedAt,
		a.UpdatedAt,
	).Error
}

func (r *repo) UpdateAccountStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status accountdomain.AccountStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status,
		id,
	).Error
}

func (r *repo) FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_number, name, status, activated_at, suspended_at, created_at, updated_at
		 FROM accounts WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) ListActiveAccounts(ctx context.Context, db *gorm.DB, limit int, afterID snowflake.ID) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_number, name, status, activated_at, suspended_at, created_at, updated_at
		 FROM accounts
		 WHERE status = ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		accountdomain.AccountStatusActive,
		afterID,
		limit,
	).Scan(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) InsertMeter(ctx context.Context, db *gorm.DB, m *accountdomain.Meter) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meters (id, account_id, meter_number, status, type, parent_meter_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.AccountID,
		m.MeterNumber,
		m.Status,
		m.Type,
		m.ParentMeterID,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) UpdateMeterStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status accountdomain.MeterStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE meters
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status,
		id,
	).Error
}

func (r *repo) FindMeterByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accountdomain.Meter, error) {
	var meter accountdomain.Meter
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, meter_number, status, type, parent_meter_id, created_at, updated_at
		 FROM meters WHERE id = ?`,
		id,
	).Scan(&meter).Error
	if err != nil {
		return nil, err
	}
	if meter.ID == 0 {
		return nil, nil
	}
	return &meter, nil
}

func (r *repo) ListMetersByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]accountdomain.Meter, error) {
	var meters []accountdomain.Meter
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, meter_number, status, type, parent_meter_id, created_at, updated_at
		 FROM meters WHERE account_id = ? ORDER BY created_at ASC`,
		accountID,
	).Scan(&meters).Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}

func (r *repo) ListActiveMetersByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]accountdomain.Meter, error) {
	var meters []accountdomain.Meter
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, meter_number, status, type, parent_meter_id, created_at, updated_at
		 FROM meters WHERE account_id = ? AND status = ? ORDER BY id ASC`,
		accountID,
		accountdomain.MeterStatusActive,
	).Scan(&meters).Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}

func (r *repo) CountActiveSubMeters(ctx context.Context, db *gorm.DB, parentMeterID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM meters WHERE parent_meter_id = ? AND status = ?`,
		parentMeterID,
		accountdomain.MeterStatusActive,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
