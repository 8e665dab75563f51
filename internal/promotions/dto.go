package promotions

import (
	"time"

	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput carries a new promotion definition.
type CreateInput struct {
	Name        string
	Description string
	Type        enums.PromotionType
	StartTime   time.Time
	EndTime     time.Time
	MinSpending *decimal.Decimal
	Rate        *decimal.Decimal
	Points      *int
}

// UpdateInput is a sparse patch; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Type        *enums.PromotionType
	StartTime   *time.Time
	EndTime     *time.Time
	MinSpending *decimal.Decimal
	Rate        *decimal.Decimal
	Points      *int
}

func (u UpdateInput) empty() bool {
	return u.Name == nil && u.Description == nil && u.Type == nil && u.StartTime == nil &&
		u.EndTime == nil && u.MinSpending == nil && u.Rate == nil && u.Points == nil
}

// touchesLockedFields reports whether the patch edits anything frozen once
// the promotion has started.
func (u UpdateInput) touchesLockedFields() bool {
	return u.Name != nil || u.Description != nil || u.Type != nil || u.StartTime != nil ||
		u.MinSpending != nil || u.Rate != nil || u.Points != nil
}

// ListFilters narrows promotion listings. Started and Ended are honoured for
// managers only and may not both be set.
type ListFilters struct {
	Name    string
	Type    *enums.PromotionType
	Started *bool
	Ended   *bool
	Params  pagination.Params
}

// PromotionDTO is the API projection of a promotion.
type PromotionDTO struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Type        enums.PromotionType `json:"type"`
	StartTime   *time.Time          `json:"startTime,omitempty"`
	EndTime     time.Time           `json:"endTime"`
	MinSpending *decimal.Decimal    `json:"minSpending"`
	Rate        *decimal.Decimal    `json:"rate"`
	Points      *int                `json:"points"`
}

// FromModel projects p; includeStart hides the start time from callers
// below manager, matching what they are allowed to see.
func FromModel(p models.Promotion, includeStart bool) PromotionDTO {
	dto := PromotionDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		EndTime:     p.EndTime.UTC(),
		MinSpending: p.MinSpending,
		Rate:        p.Rate,
		Points:      p.Points,
	}
	if includeStart {
		start := p.StartTime.UTC()
		dto.StartTime = &start
	}
	return dto
}

// Applied is the outcome of evaluating a purchase's promotion ids.
type Applied struct {
	Bonus      int
	Promotions []models.Promotion
}

// IDs lists the applied promotion ids in request order.
func (a Applied) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.Promotions))
	for _, p := range a.Promotions {
		ids = append(ids, p.ID)
	}
	return ids
}
