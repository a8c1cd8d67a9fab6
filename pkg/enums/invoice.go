package enums

import "fmt"

// InvoiceItemType maps cart lines to invoice line categories.
type InvoiceItemType string

const (
	InvoiceItemTypeCourse          InvoiceItemType = "course"
	InvoiceItemTypePhysicalProduct InvoiceItemType = "physical_product"
)

var validInvoiceItemTypes = []InvoiceItemType{
	InvoiceItemTypeCourse,
	InvoiceItemTypePhysicalProduct,
}

func (t InvoiceItemType) IsValid() bool {
	for _, candidate := range validInvoiceItemTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// InvoiceItemTypeFor classifies a product type as an invoice line type.
func InvoiceItemTypeFor(productType ProductType) InvoiceItemType {
	if productType.IsDigital() {
		return InvoiceItemTypeCourse
	}
	return InvoiceItemTypePhysicalProduct
}

// InvoiceStatus tracks an invoice through payment.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusIssued,
	InvoiceStatusPaid,
	InvoiceStatusCancelled,
}

func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
