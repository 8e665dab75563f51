package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Utorid string    `json:"utorid,omitempty"`
	Role   string    `json:"role,omitempty"`
}

// ActorFrom converts an authenticated actor into the envelope reference.
// Anonymous actors produce nil so the envelope omits the field.
func ActorFrom(actor policy.Actor) *ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &ActorRef{
		UserID: actor.UserID,
		Utorid: actor.Utorid,
		Role:   actor.Role.String(),
	}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
