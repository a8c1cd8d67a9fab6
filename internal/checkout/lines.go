package checkout

import (
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// invoiceItems maps each cart line to one invoice line. Digital products are
// billed as courses, everything else as physical goods.
func invoiceItems(items []models.CartItem) []invoices.ItemInput {
	out := make([]invoices.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, invoices.ItemInput{
			Name:        item.ProductName,
			Type:        enums.InvoiceItemTypeFor(item.ProductType),
			ReferenceID: item.ProductID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

func saleLines(items []models.CartItem) []notifications.SaleLine {
	out := make([]notifications.SaleLine, 0, len(items))
	for _, item := range items {
		out = append(out, notifications.SaleLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SellerID:    item.SellerID,
		})
	}
	return out
}
