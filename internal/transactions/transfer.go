package transactions

import (
	"bytes"
	"context"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transfer moves points from the actor to another user and writes one record
// per side, each pointing at the counterparty.
func (s *service) Transfer(ctx context.Context, actor policy.Actor, input TransferInput) (*TransferResult, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if input.RecipientID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer points to yourself")
	}
	remark := strings.TrimSpace(input.Remark)

	var result *TransferResult
	var sent, received *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sender, err := s.userByID(ctx, repo, actor.UserID)
		if err != nil {
			return err
		}
		if !sender.Verified {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only verified users may transfer points")
		}
		recipient, err := s.userByID(ctx, repo, input.RecipientID)
		if err != nil {
			return err
		}

		senderID, recipientID := sender.ID, recipient.ID
		sent = &models.Transaction{
			Type:      enums.TransactionTransfer,
			UserID:    sender.ID,
			Amount:    -input.Amount,
			RelatedID: &recipientID,
			CreatedBy: sender.Utorid,
			Remark:    remark,
		}
		received = &models.Transaction{
			Type:      enums.TransactionTransfer,
			UserID:    recipient.ID,
			Amount:    input.Amount,
			RelatedID: &senderID,
			CreatedBy: sender.Utorid,
			Remark:    remark,
		}
		if err := s.record(ctx, tx, actor, sent, sender.Utorid); err != nil {
			return err
		}
		if err := s.record(ctx, tx, actor, received, recipient.Utorid); err != nil {
			return err
		}

		// touch balances in id order so opposing transfers cannot deadlock
		steps := []struct {
			id    uuid.UUID
			delta int
		}{{sender.ID, -input.Amount}, {recipient.ID, input.Amount}}
		if bytes.Compare(recipient.ID[:], sender.ID[:]) < 0 {
			steps[0], steps[1] = steps[1], steps[0]
		}
		for _, step := range steps {
			if err := s.ledger.Apply(ctx, tx, step.id, step.delta, enums.TransactionTransfer); err != nil {
				return err
			}
		}

		result = &TransferResult{
			ID:          sent.ID,
			Sender:      sender.Utorid,
			Recipient:   recipient.Utorid,
			Type:        enums.TransactionTransfer,
			Sent:        input.Amount,
			Remark:      remark,
			CreatedBy:   sender.Utorid,
			RecipientTx: received.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logCreated(ctx, sent)
	s.logCreated(ctx, received)
	return result, nil
}
