package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
)

// TransactionCreatedEvent is emitted for every ledger record that is written,
// regardless of type.
type TransactionCreatedEvent struct {
	TransactionID uuid.UUID             `json:"transaction_id"`
	Type          enums.TransactionType `json:"type"`
	UserID        uuid.UUID             `json:"user_id"`
	Utorid        string                `json:"utorid"`
	Amount        int                   `json:"amount"`
	Spent         *decimal.Decimal      `json:"spent,omitempty"`
	RelatedID     *uuid.UUID            `json:"related_id,omitempty"`
	EventID       *uuid.UUID            `json:"event_id,omitempty"`
	PromotionIDs  []uuid.UUID           `json:"promotion_ids,omitempty"`
	Suspicious    bool                  `json:"suspicious"`
	CreatedBy     string                `json:"created_by"`
}

// TransactionSuspiciousChangedEvent records a manager flipping the flag and
// the balance correction that came with it.
type TransactionSuspiciousChangedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	Suspicious    bool      `json:"suspicious"`
	PointsDelta   int       `json:"points_delta"`
	ChangedBy     string    `json:"changed_by"`
}

// RedemptionProcessedEvent fires once per redemption when a cashier fulfils it.
type RedemptionProcessedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	Amount        int       `json:"amount"`
	ProcessedBy   string    `json:"processed_by"`
	Debited       bool      `json:"debited"`
}

// EventPointsAwardedEvent summarizes one award call against an event budget.
type EventPointsAwardedEvent struct {
	EventID        uuid.UUID   `json:"event_id"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	Recipients     []string    `json:"recipients"`
	AmountEach     int         `json:"amount_each"`
	PointsRemain   int         `json:"points_remain"`
	PointsAwarded  int         `json:"points_awarded"`
	AwardedBy      string      `json:"awarded_by"`
}

// PromotionUsedEvent is emitted when a one-time promotion is consumed.
type PromotionUsedEvent struct {
	PromotionID   uuid.UUID           `json:"promotion_id"`
	Type          enums.PromotionType `json:"type"`
	UserID        uuid.UUID           `json:"user_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	BonusPoints   int                 `json:"bonus_points"`
}
