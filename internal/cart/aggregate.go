package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/audit"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineKey identifies a cart line. A cart holds at most one line per key.
type LineKey struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	OfferID   *uuid.UUID
}

func (k LineKey) matches(item models.CartItem) bool {
	return item.ProductID == k.ProductID &&
		sameOptionalID(item.VariantID, k.VariantID) &&
		sameOptionalID(item.OfferID, k.OfferID)
}

func sameOptionalID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// LineSnapshot is the catalog state copied onto a line.
type LineSnapshot struct {
	Product    *models.Product
	Resolution Resolution
}

// FindLine returns the index of the line for key, or -1.
func FindLine(cart *models.Cart, key LineKey) int {
	for i := range cart.Items {
		if key.matches(cart.Items[i]) {
			return i
		}
	}
	return -1
}

// LineQuantity returns the quantity held for key, 0 when absent.
func LineQuantity(cart *models.Cart, key LineKey) int {
	if idx := FindLine(cart, key); idx >= 0 {
		return cart.Items[idx].Quantity
	}
	return 0
}

// AddLine merges quantity into an existing line, refreshing its snapshot to
// the newly resolved values, or appends a new line.
func AddLine(cart *models.Cart, key LineKey, snap LineSnapshot, quantity int, actx audit.Context) *models.CartItem {
	if idx := FindLine(cart, key); idx >= 0 {
		item := &cart.Items[idx]
		item.Quantity += quantity
		applySnapshot(item, snap)
		audit.Stamp(&item.AuditFields, actx, false)
		return item
	}
	return appendLine(cart, key, snap, quantity, actx)
}

// SetLineQuantity replaces the quantity on an existing line, or appends a new
// line when none matches.
func SetLineQuantity(cart *models.Cart, key LineKey, snap LineSnapshot, quantity int, actx audit.Context) *models.CartItem {
	if idx := FindLine(cart, key); idx >= 0 {
		item := &cart.Items[idx]
		item.Quantity = quantity
		applySnapshot(item, snap)
		audit.Stamp(&item.AuditFields, actx, false)
		return item
	}
	return appendLine(cart, key, snap, quantity, actx)
}

// RemoveLine drops the line for key and reports whether one existed.
func RemoveLine(cart *models.Cart, key LineKey) bool {
	idx := FindLine(cart, key)
	if idx < 0 {
		return false
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	renumber(cart)
	return true
}

// ClearLines drops every line.
func ClearLines(cart *models.Cart) {
	cart.Items = nil
}

// Subtotal sums unit price times quantity over all lines.
func Subtotal(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Recalculate refreshes the derived totals. The discount is clamped to the
// subtotal so the grand total never goes negative.
func Recalculate(cart *models.Cart, discount decimal.Decimal) {
	subtotal := Subtotal(cart)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	cart.SubtotalAmount = subtotal
	cart.DiscountAmount = discount
	cart.GrandTotal = subtotal.Sub(discount)
}

func appendLine(cart *models.Cart, key LineKey, snap LineSnapshot, quantity int, actx audit.Context) *models.CartItem {
	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		Position:  len(cart.Items),
		ProductID: key.ProductID,
		VariantID: key.VariantID,
		OfferID:   key.OfferID,
		Quantity:  quantity,
	}
	applySnapshot(&item, snap)
	audit.Stamp(&item.AuditFields, actx, true)
	cart.Items = append(cart.Items, item)
	return &cart.Items[len(cart.Items)-1]
}

func applySnapshot(item *models.CartItem, snap LineSnapshot) {
	if snap.Product != nil {
		item.ProductName = snap.Product.Name
		item.ProductSlug = snap.Product.Slug
		item.ProductType = snap.Product.Type
	}
	item.UnitPrice = snap.Resolution.UnitPrice
	item.CompareAtPrice = snap.Resolution.CompareAtPrice
	item.Thumbnail = snap.Resolution.Thumbnail
	item.SellerID = snap.Resolution.SellerID
}

func renumber(cart *models.Cart) {
	for i := range cart.Items {
		cart.Items[i].Position = i
	}
}
