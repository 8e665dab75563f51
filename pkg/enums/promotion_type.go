package enums

import "fmt"

type PromotionType string

const (
	PromotionAutomatic PromotionType = "automatic"
	PromotionOneTime   PromotionType = "one-time"
)

var validPromotionTypes = []PromotionType{
	PromotionAutomatic,
	PromotionOneTime,
}

func (p PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionType accepts the canonical values plus the "onetime" spelling used by older clients.
func ParsePromotionType(value string) (PromotionType, error) {
	if value == "onetime" {
		return PromotionOneTime, nil
	}
	for _, candidate := range validPromotionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}
