package enums

import "fmt"

// DiscountType selects how a discount value is applied to a subtotal.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixed,
}

func (d DiscountType) String() string {
	return string(d)
}

func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// AudienceGroup names a population a discount cap is counted against.
type AudienceGroup string

const (
	AudienceGroupUser AudienceGroup = "user"
)

func (a AudienceGroup) String() string {
	return string(a)
}
