package transactions

import (
	"context"
	"strings"

	"github.com/angelmondragon/campuspoints-backend/internal/events"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox"
	"github.com/angelmondragon/campuspoints-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AwardEvent pays event points to one guest or all guests. The budget is
// reserved for every target before any record is written, so an award either
// reaches every target or none.
func (s *service) AwardEvent(ctx context.Context, actor policy.Actor, input AwardInput) ([]AwardResult, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	remark := strings.TrimSpace(input.Remark)

	var results []AwardResult
	var plan *events.AwardPlan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reserved, err := s.events.ReserveAward(ctx, tx, actor, input.EventID, input.Utorid, input.Amount)
		if err != nil {
			return err
		}
		plan = reserved

		eventID := reserved.Event.ID
		txIDs := make([]uuid.UUID, 0, len(reserved.Targets))
		recipients := make([]string, 0, len(reserved.Targets))
		results = make([]AwardResult, 0, len(reserved.Targets))
		for _, guest := range reserved.Targets {
			txn := &models.Transaction{
				Type:      enums.TransactionEvent,
				UserID:    guest.ID,
				Amount:    reserved.Amount,
				RelatedID: &eventID,
				EventID:   &eventID,
				CreatedBy: actor.Utorid,
				Remark:    remark,
			}
			if err := s.record(ctx, tx, actor, txn, guest.Utorid); err != nil {
				return err
			}
			if err := s.ledger.Credit(ctx, tx, guest.ID, reserved.Amount, enums.TransactionEvent); err != nil {
				return err
			}
			txIDs = append(txIDs, txn.ID)
			recipients = append(recipients, guest.Utorid)
			results = append(results, AwardResult{
				ID:        txn.ID,
				Recipient: guest.Utorid,
				Awarded:   reserved.Amount,
				Type:      enums.TransactionEvent,
				RelatedID: eventID,
				Remark:    remark,
				CreatedBy: actor.Utorid,
			})
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPointsAwarded,
			AggregateType: enums.AggregateEvent,
			AggregateID:   eventID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.EventPointsAwardedEvent{
				EventID:        eventID,
				TransactionIDs: txIDs,
				Recipients:     recipients,
				AmountEach:     reserved.Amount,
				PointsRemain:   reserved.Event.PointsRemain,
				PointsAwarded:  reserved.Event.PointsAwarded,
				AwardedBy:      actor.Utorid,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue event award")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":      input.EventID.String(),
		"recipients":    len(results),
		"amount_each":   plan.Amount,
		"points_remain": plan.Event.PointsRemain,
	}), "event.points_awarded")
	return results, nil
}
