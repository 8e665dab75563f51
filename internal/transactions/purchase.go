package transactions

import (
	"context"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// purchase credits the customer for a cashier-entered spend. A purchase rung
// up by a suspicious cashier is stored flagged and held out of the balance.
func (s *service) purchase(ctx context.Context, actor policy.Actor, input CreateInput) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleCashier); err != nil {
		return nil, err
	}
	if input.Spent == nil || !input.Spent.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spent must be a positive amount")
	}
	spent := input.Spent.Round(2)
	if spent.GreaterThan(models.MaxSpent) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spent exceeds "+models.MaxSpent.String())
	}

	var (
		txn   *models.Transaction
		owner string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		customer, err := s.userByUtorid(ctx, repo, input.Utorid)
		if err != nil {
			return err
		}
		cashier, err := s.userByID(ctx, repo, actor.UserID)
		if err != nil {
			return err
		}
		applied, err := s.promos.Resolve(ctx, tx, customer.ID, spent, input.PromotionIDs)
		if err != nil {
			return err
		}

		earned := promotions.BasePoints(spent, s.centsPerPoint) + applied.Bonus
		if earned > models.MaxPoints {
			return pkgerrors.New(pkgerrors.CodeValidation, "purchase earns more points than a balance can hold")
		}
		txn = &models.Transaction{
			Type:       enums.TransactionPurchase,
			UserID:     customer.ID,
			Amount:     earned,
			Spent:      &spent,
			CreatedBy:  actor.Utorid,
			Suspicious: cashier.Suspicious,
			Remark:     strings.TrimSpace(input.Remark),
			Promotions: promotionLinks(applied.IDs()),
		}
		owner = customer.Utorid
		if err := s.record(ctx, tx, actor, txn, owner); err != nil {
			return err
		}

		used, err := s.promos.Consume(ctx, tx, customer.ID, txn.ID, applied.Promotions)
		if err != nil {
			return err
		}
		if err := s.emitPromotionsUsed(ctx, tx, actor, txn, spent, applied, used); err != nil {
			return err
		}

		if txn.Suspicious {
			return nil
		}
		return s.ledger.Apply(ctx, tx, customer.ID, earned, enums.TransactionPurchase)
	})
	if err != nil {
		return nil, err
	}

	s.logCreated(ctx, txn)
	dto := FromModel(*txn, owner)
	return &dto, nil
}

// emitPromotionsUsed queues promotion_used for every one-time promotion the
// purchase consumed.
func (s *service) emitPromotionsUsed(ctx context.Context, tx *gorm.DB, actor policy.Actor, txn *models.Transaction, spent decimal.Decimal, applied promotions.Applied, used []uuid.UUID) error {
	consumed := make(map[uuid.UUID]bool, len(used))
	for _, id := range used {
		consumed[id] = true
	}
	for _, p := range applied.Promotions {
		if !consumed[p.ID] {
			continue
		}
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPromotionUsed,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   p.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.PromotionUsedEvent{
				PromotionID:   p.ID,
				Type:          p.Type,
				UserID:        txn.UserID,
				TransactionID: txn.ID,
				BonusPoints:   promotions.Bonus(spent, []models.Promotion{p}),
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue promotion usage")
		}
	}
	return nil
}

// adjustment corrects a balance with a signed amount tied to an earlier record.
// The related record may belong to anyone and a zero amount is recorded
// without touching the balance.
func (s *service) adjustment(ctx context.Context, actor policy.Actor, input CreateInput) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	if input.Amount == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is required for adjustments")
	}
	if input.RelatedID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "relatedId is required for adjustments")
	}
	amount := *input.Amount

	var (
		txn   *models.Transaction
		owner string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.userByUtorid(ctx, repo, input.Utorid)
		if err != nil {
			return err
		}
		related, err := repo.FindByID(ctx, *input.RelatedID)
		if err != nil {
			return transactionNotFound(err, "load related transaction")
		}
		promos, err := s.promos.Lookup(ctx, tx, input.PromotionIDs)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(promos))
		for _, p := range promos {
			ids = append(ids, p.ID)
		}

		relatedID := related.ID
		txn = &models.Transaction{
			Type:       enums.TransactionAdjustment,
			UserID:     user.ID,
			Amount:     amount,
			RelatedID:  &relatedID,
			CreatedBy:  actor.Utorid,
			Remark:     strings.TrimSpace(input.Remark),
			Promotions: promotionLinks(ids),
		}
		owner = user.Utorid
		if err := s.record(ctx, tx, actor, txn, owner); err != nil {
			return err
		}
		return s.ledger.Apply(ctx, tx, user.ID, amount, enums.TransactionAdjustment)
	})
	if err != nil {
		return nil, err
	}

	s.logCreated(ctx, txn)
	dto := FromModel(*txn, owner)
	return &dto, nil
}
