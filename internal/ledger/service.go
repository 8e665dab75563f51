package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service mutates point balances. Every method runs inside the caller's
// transaction so the balance change commits together with the record that
// explains it.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, kind enums.TransactionType) error
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, kind enums.TransactionType) error
	Apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, kind enums.TransactionType) error
	ToggleSuspicious(ctx context.Context, tx *gorm.DB, txn *models.Transaction, suspicious bool) (int, error)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, metrics: m}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, kind enums.TransactionType) error {
	defer s.observe("credit", time.Now())

	if amount <= 0 {
		return s.fail("credit", pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive"))
	}
	if amount > models.MaxPoints {
		return s.fail("credit", pkgerrors.New(pkgerrors.CodeValidation, "credit amount too large"))
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.IncrementPoints(ctx, userID, amount)
	if err != nil {
		return s.fail("credit", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit balance"))
	}
	if !ok {
		if _, err := repo.Balance(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.fail("credit", pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
			}
			return s.fail("credit", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance"))
		}
		return s.fail("credit", pkgerrors.New(pkgerrors.CodeValidation, "credit would overflow the balance"))
	}

	s.metrics.AddCredited(string(kind), amount)
	s.logMutation(ctx, "ledger.credit", userID, amount, kind)
	return nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int, kind enums.TransactionType) error {
	defer s.observe("debit", time.Now())

	if amount <= 0 {
		return s.fail("debit", pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive"))
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.DecrementIfAvailable(ctx, userID, amount)
	if err != nil {
		return s.fail("debit", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit balance"))
	}
	if !ok {
		balance, err := repo.Balance(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.fail("debit", pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
			}
			return s.fail("debit", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance"))
		}
		return s.fail("debit", pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient points").
			WithDetails(map[string]any{"required": amount, "available": balance}))
	}

	s.metrics.AddDebited(string(kind), amount)
	s.logMutation(ctx, "ledger.debit", userID, amount, kind)
	return nil
}

// Apply credits positive deltas, debits negative ones and ignores zero.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, kind enums.TransactionType) error {
	switch {
	case delta > 0:
		return s.Credit(ctx, tx, userID, delta, kind)
	case delta < 0:
		return s.Debit(ctx, tx, userID, -delta, kind)
	default:
		return nil
	}
}

// ToggleSuspicious sets the flag on txn and returns the balance delta applied.
// Flagging removes the transaction's effect from the owner's balance and
// clearing the flag puts it back. An unchanged flag is a no-op.
func (s *service) ToggleSuspicious(ctx context.Context, tx *gorm.DB, txn *models.Transaction, suspicious bool) (int, error) {
	if txn == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}
	if txn.Suspicious == suspicious {
		return 0, nil
	}

	changed, err := s.repo.WithTx(tx).SetSuspicious(ctx, txn.ID, txn.Suspicious, suspicious)
	if err != nil {
		return 0, s.fail("suspicious", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update suspicious flag"))
	}
	if !changed {
		// another request already moved the flag to the requested value
		txn.Suspicious = suspicious
		return 0, nil
	}

	delta := txn.BalanceEffect()
	if suspicious {
		delta = -delta
	}
	if err := s.Apply(ctx, tx, txn.UserID, delta, txn.Type); err != nil {
		return 0, err
	}
	txn.Suspicious = suspicious
	return delta, nil
}

func (s *service) observe(operation string, start time.Time) {
	s.metrics.ObserveDuration(operation, time.Since(start))
}

func (s *service) fail(operation string, err *pkgerrors.Error) error {
	s.metrics.IncFailure(operation, string(err.Code()))
	return err
}

func (s *service) logMutation(ctx context.Context, msg string, userID uuid.UUID, amount int, kind enums.TransactionType) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"amount":  amount,
		"type":    string(kind),
	})
	s.logg.Info(logCtx, msg)
}
