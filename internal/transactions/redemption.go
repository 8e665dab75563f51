package transactions

import (
	"context"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateRedemption records a pending redemption. Points leave the balance only
// when a cashier processes it.
func (s *service) CreateRedemption(ctx context.Context, actor policy.Actor, input RedemptionInput) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}

	var (
		txn   *models.Transaction
		owner string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.userByID(ctx, repo, actor.UserID)
		if err != nil {
			return err
		}
		if !user.Verified {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only verified users may redeem points")
		}
		if user.Points < input.Amount {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient points").
				WithDetails(map[string]any{"required": input.Amount, "available": user.Points})
		}

		txn = &models.Transaction{
			Type:      enums.TransactionRedemption,
			UserID:    user.ID,
			Amount:    input.Amount,
			CreatedBy: user.Utorid,
			Remark:    strings.TrimSpace(input.Remark),
		}
		owner = user.Utorid
		return s.record(ctx, tx, actor, txn, owner)
	})
	if err != nil {
		return nil, err
	}

	s.logCreated(ctx, txn)
	dto := FromModel(*txn, owner)
	return &dto, nil
}

// ProcessRedemption completes a pending redemption exactly once and debits
// the owner. A redemption flagged suspicious is marked processed without a
// debit; clearing the flag later applies it.
func (s *service) ProcessRedemption(ctx context.Context, actor policy.Actor, id uuid.UUID) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleCashier); err != nil {
		return nil, err
	}

	var out *models.Transaction
	var debited bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := s.lockTransaction(ctx, repo, id)
		if err != nil {
			return err
		}
		if txn.Type != enums.TransactionRedemption {
			return pkgerrors.New(pkgerrors.CodeValidation, "transaction is not a redemption")
		}
		if txn.Processed() {
			return alreadyProcessed(txn)
		}

		won, err := repo.MarkProcessed(ctx, txn.ID, actor.Utorid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark redemption processed")
		}
		if !won {
			return alreadyProcessed(txn)
		}

		if !txn.Suspicious {
			if err := s.ledger.Debit(ctx, tx, txn.UserID, txn.Amount, enums.TransactionRedemption); err != nil {
				return err
			}
			debited = true
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRedemptionProcessed,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.RedemptionProcessedEvent{
				TransactionID: txn.ID,
				UserID:        txn.UserID,
				Amount:        txn.Amount,
				ProcessedBy:   actor.Utorid,
				Debited:       debited,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue redemption processed")
		}

		out, err = repo.FindByID(ctx, txn.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload redemption")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": id.String(),
		"amount":         out.Amount,
		"debited":        debited,
	}), "redemption.processed")
	dto := FromModel(*out, "")
	return &dto, nil
}

func alreadyProcessed(txn *models.Transaction) error {
	details := map[string]any{"transactionId": txn.ID.String()}
	if txn.ProcessedBy != nil {
		details["processedBy"] = *txn.ProcessedBy
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "redemption already processed").WithDetails(details)
}
