package models

import (
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Promotion is valid inside the half-open window [StartTime, EndTime).
type Promotion struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Description string              `gorm:"column:description;not null;default:''"`
	Type        enums.PromotionType `gorm:"column:type;type:promotion_type_enum;not null"`
	StartTime   time.Time           `gorm:"column:start_time;not null"`
	EndTime     time.Time           `gorm:"column:end_time;not null"`
	MinSpending *decimal.Decimal    `gorm:"column:min_spending;type:numeric(10,2)"`
	Rate        *decimal.Decimal    `gorm:"column:rate;type:numeric(10,4)"`
	Points      *int                `gorm:"column:points"`
	CreatedBy   string              `gorm:"column:created_by;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ActiveAt reports whether the promotion window contains now.
func (p Promotion) ActiveAt(now time.Time) bool {
	return !now.Before(p.StartTime) && now.Before(p.EndTime)
}

// PromotionUsage marks a one-time promotion as consumed by a user. The
// composite primary key makes the check-and-mark atomic.
type PromotionUsage struct {
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	PromotionID   uuid.UUID `gorm:"column:promotion_id;type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
