package types

// ShippingSnapshot is the immutable copy of a user address attached to an
// invoice. It is stored as JSON so later address edits never rewrite history.
type ShippingSnapshot struct {
	RecipientName  string  `json:"recipient_name"`
	RecipientPhone string  `json:"recipient_phone"`
	Province       string  `json:"province"`
	City           string  `json:"city"`
	PostalCode     string  `json:"postal_code"`
	AddressLine    string  `json:"address_line"`
	Plaque         *string `json:"plaque,omitempty"`
	Unit           *string `json:"unit,omitempty"`
}
