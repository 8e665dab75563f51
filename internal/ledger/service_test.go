package ledger

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/dbtest"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (*gorm.DB, Service, *prometheus.Registry) {
	t.Helper()
	conn := dbtest.Open(t)
	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), logg, metrics.NewLedgerMetrics(reg))
	require.NoError(t, err)
	return conn, svc, reg
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, logger.New(logger.Options{Output: io.Discard}), nil)
	require.Error(t, err)
	_, err = NewService(NewRepository(nil), nil, nil)
	require.Error(t, err)
}

func TestCreditAndDebit(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "clive123"})

	require.NoError(t, svc.Credit(ctx, conn, user.ID, 160, enums.TransactionPurchase))
	require.Equal(t, 160, dbtest.Points(t, conn, user.ID))

	require.NoError(t, svc.Debit(ctx, conn, user.ID, 100, enums.TransactionTransfer))
	require.Equal(t, 60, dbtest.Points(t, conn, user.ID))
}

func TestDebitRejectsOverdraft(t *testing.T) {
	conn, svc, reg := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "poorone1", Points: 20})

	err := svc.Debit(ctx, conn, user.ID, 21, enums.TransactionRedemption)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, 20, details["available"])
	require.Equal(t, 20, dbtest.Points(t, conn, user.ID))

	count, err := testutil.GatherAndCount(reg, "ledger_operation_failures_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMissingUser(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()

	err := svc.Credit(ctx, conn, uuid.New(), 5, enums.TransactionAdjustment)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	err = svc.Debit(ctx, conn, uuid.New(), 5, enums.TransactionAdjustment)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "zero0001", Points: 10})

	for _, amount := range []int{0, -5} {
		require.True(t, pkgerrors.IsCode(svc.Credit(ctx, conn, user.ID, amount, enums.TransactionPurchase), pkgerrors.CodeValidation))
		require.True(t, pkgerrors.IsCode(svc.Debit(ctx, conn, user.ID, amount, enums.TransactionPurchase), pkgerrors.CodeValidation))
	}
	require.NoError(t, svc.Apply(ctx, conn, user.ID, 0, enums.TransactionAdjustment))
	require.NoError(t, svc.Apply(ctx, conn, user.ID, -4, enums.TransactionAdjustment))
	require.Equal(t, 6, dbtest.Points(t, conn, user.ID))
}

func TestDebitRollsBackWithTransaction(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	sender := dbtest.CreateUser(t, conn, models.User{Utorid: "sender01", Points: 50})
	recipient := dbtest.CreateUser(t, conn, models.User{Utorid: "recvr001"})

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Credit(ctx, tx, recipient.ID, 80, enums.TransactionTransfer); err != nil {
			return err
		}
		return svc.Debit(ctx, tx, sender.ID, 80, enums.TransactionTransfer)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance))
	require.Equal(t, 50, dbtest.Points(t, conn, sender.ID))
	require.Equal(t, 0, dbtest.Points(t, conn, recipient.ID))
}

func TestToggleSuspiciousIsReversible(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "flagme01", Points: 160})

	txn := &models.Transaction{
		Type:      enums.TransactionPurchase,
		UserID:    user.ID,
		Amount:    160,
		CreatedBy: "cashier1",
	}
	require.NoError(t, conn.Create(txn).Error)

	delta, err := svc.ToggleSuspicious(ctx, conn, txn, true)
	require.NoError(t, err)
	require.Equal(t, -160, delta)
	require.Equal(t, 0, dbtest.Points(t, conn, user.ID))

	delta, err = svc.ToggleSuspicious(ctx, conn, txn, true)
	require.NoError(t, err)
	require.Zero(t, delta)
	require.Equal(t, 0, dbtest.Points(t, conn, user.ID))

	_, err = svc.ToggleSuspicious(ctx, conn, txn, false)
	require.NoError(t, err)
	_, err = svc.ToggleSuspicious(ctx, conn, txn, true)
	require.NoError(t, err)
	_, err = svc.ToggleSuspicious(ctx, conn, txn, false)
	require.NoError(t, err)
	require.Equal(t, 160, dbtest.Points(t, conn, user.ID))

	var stored models.Transaction
	require.NoError(t, conn.First(&stored, "id = ?", txn.ID).Error)
	require.Equal(t, 160, stored.Amount)
	require.False(t, stored.Suspicious)
}

func TestToggleSuspiciousRejectsNegativeBalance(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "spent001", Points: 30})

	txn := &models.Transaction{Type: enums.TransactionPurchase, UserID: user.ID, Amount: 100, CreatedBy: "cashier1"}
	require.NoError(t, conn.Create(txn).Error)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ToggleSuspicious(ctx, tx, txn, true)
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance), "got %v", err)

	var stored models.Transaction
	require.NoError(t, conn.First(&stored, "id = ?", txn.ID).Error)
	require.False(t, stored.Suspicious)
	require.Equal(t, 30, dbtest.Points(t, conn, user.ID))
}

func TestToggleSuspiciousOnRedemptions(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "redeem01", Points: 10})

	pending := &models.Transaction{Type: enums.TransactionRedemption, UserID: user.ID, Amount: 50, CreatedBy: "redeem01"}
	require.NoError(t, conn.Create(pending).Error)
	delta, err := svc.ToggleSuspicious(ctx, conn, pending, true)
	require.NoError(t, err)
	require.Zero(t, delta, "unprocessed redemptions carry no balance effect")

	processor := "cashier1"
	processed := &models.Transaction{Type: enums.TransactionRedemption, UserID: user.ID, Amount: 50, CreatedBy: "redeem01", ProcessedBy: &processor}
	require.NoError(t, conn.Create(processed).Error)
	delta, err = svc.ToggleSuspicious(ctx, conn, processed, true)
	require.NoError(t, err)
	require.Equal(t, 50, delta)
	require.Equal(t, 60, dbtest.Points(t, conn, user.ID))
}

func TestCreditCappedAtColumnRange(t *testing.T) {
	conn, svc, _ := newTestLedger(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "richone1", Points: models.MaxPoints - 5})

	err := svc.Credit(ctx, conn, user.ID, 10, enums.TransactionAdjustment)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	require.Equal(t, models.MaxPoints-5, dbtest.Points(t, conn, user.ID))

	err = svc.Credit(ctx, conn, user.ID, 1<<40, enums.TransactionAdjustment)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	require.NoError(t, svc.Credit(ctx, conn, user.ID, 5, enums.TransactionAdjustment))
	require.Equal(t, models.MaxPoints, dbtest.Points(t, conn, user.ID))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	const racers = 10
	conn := dbtest.OpenConcurrent(t, racers)
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), logg, nil)
	require.NoError(t, err)
	user := dbtest.CreateUser(t, conn, models.User{Utorid: "shared01", Points: 100})

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, racers)
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = svc.Debit(context.Background(), conn, user.ID, 30, enums.TransactionRedemption)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance), "got %v", err)
	}
	require.Equal(t, 3, succeeded)
	require.Equal(t, 10, dbtest.Points(t, conn, user.ID))
}
