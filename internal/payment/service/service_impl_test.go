package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	auditdomain "github.com/smallbiznis/aquabill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/aquabill/internal/audit/repository"
	auditservice "github.com/smallbiznis/aquabill/internal/audit/service"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	billingrepo "github.com/smallbiznis/aquabill/internal/billing/repository"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/aquabill/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentFixture struct {
	svc     paymentdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	cfg     config.BillingConfig
	holder  *config.BillingConfigHolder
	account *accountdomain.Account
}

func setupPaymentService(t *testing.T, reversalPolicy string) *paymentFixture {
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
		&billingdomain.BillingDetail{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentAllocation{},
		&creditnotedomain.CreditNote{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	cfg := config.DefaultBillingConfig()
	cfg.Reversal = reversalPolicy
	holder := config.NewStaticBillingConfigHolder(cfg)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  auditrepo.Provide(),
	})

	account := &accountdomain.Account{
		ID:            node.Generate(),
		AccountNumber: "ACC-3001",
		Name:          "Harbor Lane 12",
		Status:        accountdomain.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        paymentrepo.Provide(),
		BillingRepo: billingrepo.Provide(),
		AuditSvc:    auditSvc,
		BillingCfg:  holder,
	})

	return &paymentFixture{
		svc:     svc,
		db:      db,
		node:    node,
		clock:   fakeClock,
		cfg:     cfg,
		holder:  holder,
		account: account,
	}
}

func (f *paymentFixture) seedBill(t *testing.T, period string, total int64, dueDate time.Time) *billingdomain.Billing {
	t.Helper()
	bill := &billingdomain.Billing{
		ID:            f.node.Generate(),
		AccountID:     f.account.ID,
		BillingPeriod: period,
		BillType:      billingdomain.BillTypeRegular,
		TotalAmount:   total,
		Status:        billingdomain.BillingStatusPending,
		DueDate:       dueDate,
	}
	require.NoError(t, f.db.Create(bill).Error)
	return bill
}

func (f *paymentFixture) billStatus(t *testing.T, id snowflake.ID) billingdomain.BillingStatus {
	t.Helper()
	var bill billingdomain.Billing
	require.NoError(t, f.db.First(&bill, "id = ?", id).Error)
	return bill.Status
}

func TestRecordPayment(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-001",
		Amount:        5_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
		RecordedBy:    "clerk-7",
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusReceived, payment.Status)
	assert.Equal(t, f.clock.Now(), payment.PaymentDate)
}

func TestRecordPaymentGeneratesReferenceForCash(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID: f.account.ID,
		Amount:    2_500,
		Method:    paymentdomain.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payment.TransactionID)
}

func TestRecordPaymentRejectsDuplicateTransaction(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)

	candidate := paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-REPLAY",
		Amount:        5_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
	}
	_, err := f.svc.RecordPayment(context.Background(), candidate)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(context.Background(), candidate)
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicatePayment)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)

	for _, amount := range []int64{0, -100} {
		_, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
			AccountID: f.account.ID,
			Amount:    amount,
			Method:    paymentdomain.PaymentMethodCash,
		})
		assert.ErrorIs(t, err, paymentdomain.ErrNonPositiveAmount)
	}
}

func TestReconcileAllocatesOldestDueFirst(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)
	older := f.seedBill(t, "2025-01", 5_000, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
	newer := f.seedBill(t, "2025-02", 8_000, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-FIFO",
		Amount:        6_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	result, err := f.svc.Reconcile(context.Background(), payment.ID, false)
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, older.ID, result.Allocations[0].BillingID)
	assert.Equal(t, int64(5_000), result.Allocations[0].Amount)
	assert.Equal(t, newer.ID, result.Allocations[1].BillingID)
	assert.Equal(t, int64(1_000), result.Allocations[1].Amount)
	assert.Equal(t, int64(0), result.Unallocated)
	assert.Equal(t, paymentdomain.ReconciliationStatusReconciled, result.Status)

	// Allocated plus unallocated always equals the payment amount.
	var sum int64
	for _, a := range result.Allocations {
		sum += a.Amount
	}
	assert.Equal(t, payment.Amount, sum+result.Unallocated)

	assert.Equal(t, billingdomain.BillingStatusPaid, f.billStatus(t, older.ID))
	assert.Equal(t, billingdomain.BillingStatusPartiallyPaid, f.billStatus(t, newer.ID))
}

func TestReconcileOverpaymentKeepsRemainderAsCredit(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)
	bill := f.seedBill(t, "2025-01", 4_000, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-OVER",
		Amount:        10_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	result, err := f.svc.Reconcile(context.Background(), payment.ID, false)
	require.NoError(t, err)

	require.Len(t, result.Allocations, 1)
	assert.Equal(t, int64(4_000), result.Allocations[0].Amount)
	assert.Equal(t, int64(6_000), result.Unallocated)
	assert.Equal(t, paymentdomain.ReconciliationStatusPartial, result.Status)
	assert.Equal(t, billingdomain.BillingStatusPaid, f.billStatus(t, bill.ID))

	var updated paymentdomain.Payment
	require.NoError(t, f.db.First(&updated, "id = ?", payment.ID).Error)
	assert.Equal(t, paymentdomain.PaymentStatusAllocated, updated.Status)
}

func TestReconcileWithNoOutstandingBills(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-IDLE",
		Amount:        3_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	result, err := f.svc.Reconcile(context.Background(), payment.ID, false)
	require.NoError(t, err)
	assert.Empty(t, result.Allocations)
	assert.Equal(t, int64(3_000), result.Unallocated)
}

func TestReconcileIsRepeatableWithoutDoubleAllocation(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)
	f.seedBill(t, "2025-01", 5_000, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-RERUN",
		Amount:        5_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	first, err := f.svc.Reconcile(context.Background(), payment.ID, false)
	require.NoError(t, err)
	require.Len(t, first.Allocations, 1)

	_, err = f.svc.Reconcile(context.Background(), payment.ID, false)
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyReconciled)

	// A forced rerun finds nothing left to place.
	second, err := f.svc.Reconcile(context.Background(), payment.ID, true)
	require.NoError(t, err)
	assert.Empty(t, second.Allocations)
	assert.Equal(t, int64(0), second.Unallocated)
}

func TestReconcileUnknownPayment(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)

	_, err := f.svc.Reconcile(context.Background(), f.node.Generate(), false)
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}

func TestReverseReconciliationRestoresBillStatuses(t *testing.T) {
	f := setupPaymentService(t, config.ReversalPolicyAdminOnly)
	paidBill := f.seedBill(t, "2025-01", 5_000, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
	partialBill := f.seedBill(t, "2025-02", 8_000, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))

	payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
		AccountID:     f.account.ID,
		TransactionID: "BANK-REV",
		Amount:        6_000,
		Method:        paymentdomain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)
	_, err = f.svc.Reconcile(context.Background(), payment.ID, false)
	require.NoError(t, err)

	admin := paymentdomain.Actor{UserID: "ops-1", Role: "admin"}
	require.NoError(t, f.svc.ReverseReconciliation(context.Background(), payment.ID, admin, "bounced transfer"))

	assert.Equal(t, billingdomain.BillingStatusPending, f.billStatus(t, paidBill.ID))
	assert.Equal(t, billingdomain.BillingStatusPending, f.billStatus(t, partialBill.ID))

	var updated paymentdomain.Payment
	require.NoError(t, f.db.First(&updated, "id = ?", payment.ID).Error)
	assert.Equal(t, paymentdomain.PaymentStatusReceived, updated.Status)

	// History survives; nothing is deleted.
	var total, reversed int64
	require.NoError(t, f.db.Model(&paymentdomain.PaymentAllocation{}).
		Where("payment_id = ?", payment.ID).Count(&total).Error)
	require.NoError(t, f.db.Model(&paymentdomain.PaymentAllocation{}).
		Where("payment_id = ? AND reversed_at IS NOT NULL", payment.ID).Count(&reversed).Error)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, total, reversed)

	err = f.svc.ReverseReconciliation(context.Background(), payment.ID, admin, "again")
	assert.ErrorIs(t, err, paymentdomain.ErrNothingToReverse)
}

func TestReverseReconciliationPolicy(t *testing.T) {
	t.Run("admin only rejects non-admin", func(t *testing.T) {
		f := setupPaymentService(t, config.ReversalPolicyAdminOnly)
		payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
			AccountID:     f.account.ID,
			TransactionID: "BANK-P1",
			Amount:        1_000,
			Method:        paymentdomain.PaymentMethodBankTransfer,
			RecordedBy:    "clerk-7",
		})
		require.NoError(t, err)

		actor := paymentdomain.Actor{UserID: "clerk-7", Role: "clerk"}
		err = f.svc.ReverseReconciliation(context.Background(), payment.ID, actor, "typo")
		assert.ErrorIs(t, err, paymentdomain.ErrReversalForbidden)
	})

	t.Run("same user may reverse own payment", func(t *testing.T) {
		f := setupPaymentService(t, config.ReversalPolicySameUser)
		f.seedBill(t, "2025-01", 1_000, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
		payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
			AccountID:     f.account.ID,
			TransactionID: "BANK-P2",
			Amount:        1_000,
			Method:        paymentdomain.PaymentMethodBankTransfer,
			RecordedBy:    "clerk-7",
		})
		require.NoError(t, err)
		_, err = f.svc.Reconcile(context.Background(), payment.ID, false)
		require.NoError(t, err)

		actor := paymentdomain.Actor{UserID: "clerk-7", Role: "clerk"}
		assert.NoError(t, f.svc.ReverseReconciliation(context.Background(), payment.ID, actor, "typo"))
	})

	t.Run("same user rejects someone else", func(t *testing.T) {
		f := setupPaymentService(t, config.ReversalPolicySameUser)
		payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
			AccountID:     f.account.ID,
			TransactionID: "BANK-P3",
			Amount:        1_000,
			Method:        paymentdomain.PaymentMethodBankTransfer,
			RecordedBy:    "clerk-7",
		})
		require.NoError(t, err)

		actor := paymentdomain.Actor{UserID: "clerk-9", Role: "clerk"}
		err = f.svc.ReverseReconciliation(context.Background(), payment.ID, actor, "typo")
		assert.ErrorIs(t, err, paymentdomain.ErrReversalForbidden)
	})

	t.Run("anyone", func(t *testing.T) {
		f := setupPaymentService(t, config.ReversalPolicyAnyone)
		f.seedBill(t, "2025-01", 1_000, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
		payment, err := f.svc.RecordPayment(context.Background(), paymentdomain.NewPayment{
			AccountID:     f.account.ID,
			TransactionID: "BANK-P4",
			Amount:        1_000,
			Method:        paymentdomain.PaymentMethodBankTransfer,
		})
		require.NoError(t, err)
		_, err = f.svc.Reconcile(context.Background(), payment.ID, false)
		require.NoError(t, err)

		actor := paymentdomain.Actor{UserID: "anyone", Role: "clerk"}
		assert.NoError(t, f.svc.ReverseReconciliation(context.Background(), payment.ID, actor, "refund"))
	})
}
