package models

import (
	"math"
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxPoints is the largest point value the integer columns hold.
const MaxPoints = math.MaxInt32

// MaxSpent is the largest spend numeric(10,2) holds.
var MaxSpent = decimal.RequireFromString("99999999.99")

// Transaction is an immutable ledger record. Only Suspicious and ProcessedBy
// change after creation.
//
// RelatedID points at the adjusted transaction for adjustments, the
// counterparty user for transfers and the event for event awards.
type Transaction struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Type        enums.TransactionType  `gorm:"column:type;type:transaction_type_enum;not null;index"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	User        *User                  `gorm:"foreignKey:UserID"`
	Amount      int                    `gorm:"column:amount;not null"`
	Spent       *decimal.Decimal       `gorm:"column:spent;type:numeric(10,2)"`
	RelatedID   *uuid.UUID             `gorm:"column:related_id;type:uuid;index"`
	EventID     *uuid.UUID             `gorm:"column:event_id;type:uuid;index"`
	CreatedBy   string                 `gorm:"column:created_by;not null"`
	ProcessedBy *string                `gorm:"column:processed_by"`
	Suspicious  bool                   `gorm:"column:suspicious;not null;default:false"`
	Remark      string                 `gorm:"column:remark;not null;default:''"`
	Promotions  []TransactionPromotion `gorm:"foreignKey:TransactionID"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Processed reports whether a redemption has been completed by a cashier.
func (t Transaction) Processed() bool {
	return t.ProcessedBy != nil
}

// BalanceEffect is the signed delta the transaction contributes to its owner's
// balance while it is not suspicious. Redemptions only count once processed.
func (t Transaction) BalanceEffect() int {
	if t.Type == enums.TransactionRedemption {
		if !t.Processed() {
			return 0
		}
		return -t.Amount
	}
	return t.Amount
}

// PromotionIDs flattens the promotion links in insertion order.
func (t Transaction) PromotionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Promotions))
	for _, link := range t.Promotions {
		ids = append(ids, link.PromotionID)
	}
	return ids
}

// TransactionPromotion links a purchase to each promotion applied to it.
type TransactionPromotion struct {
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;primaryKey"`
	PromotionID   uuid.UUID `gorm:"column:promotion_id;type:uuid;primaryKey;index"`
}
