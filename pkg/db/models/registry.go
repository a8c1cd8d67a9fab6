package models

// All lists every model owned by this service, in dependency order, for
// schema bootstrapping.
func All() []any {
	return []any{
		&Seller{},
		&Product{},
		&ProductVariant{},
		&Offer{},
		&Cart{},
		&CartItem{},
		&DiscountCode{},
		&DiscountAudienceCap{},
		&DiscountAudienceUsage{},
		&UserAddress{},
		&Invoice{},
		&InvoiceItem{},
		&Notification{},
		&Setting{},
	}
}
