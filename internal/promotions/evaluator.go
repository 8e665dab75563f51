package promotions

import (
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BasePoints converts a dollar spend into points at centsPerPoint, rounded
// half away from zero. At 25 cents per point $40.00 earns 160.
func BasePoints(spent decimal.Decimal, centsPerPoint int) int {
	if centsPerPoint <= 0 || !spent.IsPositive() {
		return 0
	}
	return int(spent.Mul(hundred).Div(decimal.NewFromInt(int64(centsPerPoint))).Round(0).IntPart())
}

// Bonus sums the extra points promos grant on spent. Automatic promotions add
// round(spent * rate); one-time promotions add their flat points.
func Bonus(spent decimal.Decimal, promos []models.Promotion) int {
	total := 0
	for _, p := range promos {
		total += bonusFor(spent, p)
	}
	return total
}

func bonusFor(spent decimal.Decimal, p models.Promotion) int {
	switch p.Type {
	case enums.PromotionAutomatic:
		if p.Rate == nil {
			return 0
		}
		return int(spent.Mul(*p.Rate).Round(0).IntPart())
	case enums.PromotionOneTime:
		if p.Points == nil {
			return 0
		}
		return *p.Points
	default:
		return 0
	}
}

// meetsMinimum reports whether spent satisfies p's minimum spend, if any.
func meetsMinimum(spent decimal.Decimal, p models.Promotion) bool {
	if p.MinSpending == nil {
		return true
	}
	return spent.GreaterThanOrEqual(*p.MinSpending)
}
