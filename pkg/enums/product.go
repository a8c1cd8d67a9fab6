package enums

import "fmt"

// ProductType classifies how a product is fulfilled.
type ProductType string

const (
	ProductTypePhysical ProductType = "physical"
	ProductTypeDigital  ProductType = "digital"
)

var validProductTypes = []ProductType{
	ProductTypePhysical,
	ProductTypeDigital,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsDigital reports whether the product is delivered without shipping.
func (p ProductType) IsDigital() bool {
	return p == ProductTypeDigital
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
