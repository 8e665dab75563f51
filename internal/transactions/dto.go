package transactions

import (
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput is the cashier/manager transaction request. Purchases carry
// Spent; adjustments carry Amount and RelatedID.
type CreateInput struct {
	Type         enums.TransactionType
	Utorid       string
	Spent        *decimal.Decimal
	Amount       *int
	RelatedID    *uuid.UUID
	PromotionIDs []uuid.UUID
	Remark       string
}

type TransferInput struct {
	RecipientID uuid.UUID
	Amount      int
	Remark      string
}

type RedemptionInput struct {
	Amount int
	Remark string
}

// AwardInput distributes Amount points to one guest, or every guest when
// Utorid is empty.
type AwardInput struct {
	EventID uuid.UUID
	Utorid  string
	Amount  int
	Remark  string
}

// Amount comparison operators accepted by listings.
const (
	OperatorGTE = "gte"
	OperatorLTE = "lte"
)

type ListFilters struct {
	Name        string
	CreatedBy   string
	Suspicious  *bool
	PromotionID *uuid.UUID
	Type        *enums.TransactionType
	RelatedID   *uuid.UUID
	Amount      *int
	Operator    string
	Params      pagination.Params
}

// TransactionDTO is the common projection of a ledger record.
type TransactionDTO struct {
	ID           uuid.UUID             `json:"id"`
	Utorid       string                `json:"utorid"`
	Type         enums.TransactionType `json:"type"`
	Amount       int                   `json:"amount"`
	Spent        *decimal.Decimal      `json:"spent,omitempty"`
	Earned       *int                  `json:"earned,omitempty"`
	RelatedID    *uuid.UUID            `json:"relatedId,omitempty"`
	EventID      *uuid.UUID            `json:"eventId,omitempty"`
	PromotionIDs []uuid.UUID           `json:"promotionIds"`
	Suspicious   bool                  `json:"suspicious"`
	Remark       string                `json:"remark"`
	CreatedBy    string                `json:"createdBy"`
	ProcessedBy  *string               `json:"processedBy,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// FromModel projects t. The owner's utorid is read from the preloaded user
// unless owner is provided.
func FromModel(t models.Transaction, owner string) TransactionDTO {
	if owner == "" && t.User != nil {
		owner = t.User.Utorid
	}
	dto := TransactionDTO{
		ID:           t.ID,
		Utorid:       owner,
		Type:         t.Type,
		Amount:       t.Amount,
		Spent:        t.Spent,
		RelatedID:    t.RelatedID,
		EventID:      t.EventID,
		PromotionIDs: t.PromotionIDs(),
		Suspicious:   t.Suspicious,
		Remark:       t.Remark,
		CreatedBy:    t.CreatedBy,
		ProcessedBy:  t.ProcessedBy,
		CreatedAt:    t.CreatedAt.UTC(),
	}
	if t.Type == enums.TransactionPurchase {
		earned := t.Amount
		if t.Suspicious {
			earned = 0
		}
		dto.Earned = &earned
	}
	return dto
}

// TransferResult describes the sender's side of a transfer.
type TransferResult struct {
	ID          uuid.UUID             `json:"id"`
	Sender      string                `json:"sender"`
	Recipient   string                `json:"recipient"`
	Type        enums.TransactionType `json:"type"`
	Sent        int                   `json:"sent"`
	Remark      string                `json:"remark"`
	CreatedBy   string                `json:"createdBy"`
	RecipientTx uuid.UUID             `json:"recipientTransactionId"`
}

// AwardResult is one guest's event-award record.
type AwardResult struct {
	ID        uuid.UUID             `json:"id"`
	Recipient string                `json:"recipient"`
	Awarded   int                   `json:"awarded"`
	Type      enums.TransactionType `json:"type"`
	RelatedID uuid.UUID             `json:"relatedId"`
	Remark    string                `json:"remark"`
	CreatedBy string                `json:"createdBy"`
}
