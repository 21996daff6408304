package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	accountrepo "github.com/smallbiznis/aquabill/internal/account/repository"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/aquabill/internal/audit/repository"
	auditservice "github.com/smallbiznis/aquabill/internal/audit/service"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	billingrepo "github.com/smallbiznis/aquabill/internal/billing/repository"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	"github.com/smallbiznis/aquabill/internal/idempotency"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	statementdomain "github.com/smallbiznis/aquabill/internal/statement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type statementFixture struct {
	svc     statementdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	account *accountdomain.Account
}

func setupStatementService(t *testing.T) *statementFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&billingdomain.Billing{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentAllocation{},
		&creditnotedomain.CreditNote{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  auditrepo.Provide(),
	})

	account := &accountdomain.Account{
		ID:            node.Generate(),
		AccountNumber: "ACC-6001",
		Name:          "Northgate School",
		Status:        accountdomain.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		BillingRepo: billingrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
		AuditSvc:    auditSvc,
		Store:       idempotency.NewStore(nil),
		BillingCfg:  config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})

	return &statementFixture{svc: svc, db: db, node: node, clock: fakeClock, account: account}
}

func (f *statementFixture) seedBill(t *testing.T, period string, total int64, created time.Time) *billingdomain.Billing {
	t.Helper()
	bill := &billingdomain.Billing{
		ID:            f.node.Generate(),
		AccountID:     f.account.ID,
		BillingPeriod: period,
		BillType:      billingdomain.BillTypeRegular,
		TotalAmount:   total,
		Status:        billingdomain.BillingStatusPending,
		DueDate:       created.AddDate(0, 0, 14),
		CreatedAt:     created,
	}
	require.NoError(t, f.db.Create(bill).Error)
	return bill
}

func TestGenerateStatement(t *testing.T) {
	f := setupStatementService(t)
	january := f.seedBill(t, "2025-01", 10_000, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	f.seedBill(t, "2025-02", 6_000, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	payment := &paymentdomain.Payment{
		ID:            f.node.Generate(),
		AccountID:     f.account.ID,
		TransactionID: "TXN-STMT",
		Amount:        4_000,
		PaymentDate:   time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC),
		Method:        paymentdomain.PaymentMethodBankTransfer,
		Status:        paymentdomain.PaymentStatusAllocated,
	}
	require.NoError(t, f.db.Create(payment).Error)
	require.NoError(t, f.db.Create(&paymentdomain.PaymentAllocation{
		ID:        f.node.Generate(),
		PaymentID: payment.ID,
		BillingID: january.ID,
		Amount:    4_000,
	}).Error)
	require.NoError(t, f.db.Create(&creditnotedomain.CreditNote{
		ID:        f.node.Generate(),
		BillingID: january.ID,
		Reference: "01CREDITREF0000000000000001",
		Amount:    1_000,
		Reason:    "estimated reading corrected",
		Status:    creditnotedomain.CreditNoteStatusApplied,
	}).Error)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	statement, err := f.svc.Generate(context.Background(), f.account.ID, from, to)
	require.NoError(t, err)

	assert.Equal(t, "ACC-6001", statement.AccountNumber)
	require.Len(t, statement.Lines, 2)
	assert.Equal(t, int64(16_000), statement.TotalBilled)
	assert.Equal(t, int64(4_000), statement.TotalPaid)
	assert.Equal(t, int64(1_000), statement.TotalCredited)
	assert.Equal(t, int64(11_000), statement.ClosingBalance)

	first := statement.Lines[0]
	assert.Equal(t, january.ID, first.BillingID)
	assert.Equal(t, int64(5_000), first.Balance)
}

func TestGenerateStatementEmptyWindow(t *testing.T) {
	f := setupStatementService(t)
	f.seedBill(t, "2025-01", 10_000, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	statement, err := f.svc.Generate(context.Background(), f.account.ID, from, to)
	require.NoError(t, err)
	assert.Empty(t, statement.Lines)
	assert.Equal(t, int64(0), statement.ClosingBalance)
}

func TestGenerateStatementInvalidWindow(t *testing.T) {
	f := setupStatementService(t)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Generate(context.Background(), f.account.ID, at, at)
	assert.ErrorIs(t, err, statementdomain.ErrInvalidWindow)

	_, err = f.svc.Generate(context.Background(), f.account.ID, at.AddDate(0, 1, 0), at)
	assert.ErrorIs(t, err, statementdomain.ErrInvalidWindow)
}

func TestGenerateStatementUnknownAccount(t *testing.T) {
	f := setupStatementService(t)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Generate(context.Background(), f.node.Generate(), from, from.AddDate(0, 3, 0))
	assert.ErrorIs(t, err, statementdomain.ErrAccountNotFound)
}

func TestMarkSentWithoutRedisAlwaysSends(t *testing.T) {
	f := setupStatementService(t)

	// Without redis the marker degrades to always-first; single-instance
	// deployments rely on the scheduler's own cadence instead.
	first, err := f.svc.MarkSent(context.Background(), f.account.ID, "2025-03")
	require.NoError(t, err)
	assert.True(t, first)
}
