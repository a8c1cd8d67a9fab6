package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Cart is owned by exactly one of a registered user or an anonymous session.
// Totals are derived and refreshed after every mutation.
type Cart struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID         *uuid.UUID      `gorm:"column:user_id;type:uuid;index"`
	AnonymousID    *string         `gorm:"column:anonymous_id;size:64;index"`
	DiscountCode   *string         `gorm:"column:discount_code;size:64"`
	SubtotalAmount decimal.Decimal `gorm:"column:subtotal_amount;type:numeric(18,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(18,2);not null"`
	GrandTotal     decimal.Decimal `gorm:"column:grand_total;type:numeric(18,2);not null"`
	Version        int64           `gorm:"column:version;not null"`
	Items          []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	AuditFields    `gorm:"embedded"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem is a snapshot of a purchasable line. Name, price and imagery are
// copied at add/update time and never read back from the catalog.
type CartItem struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;index"`
	Position       int                 `gorm:"column:position;not null"`
	ProductID      uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID          `gorm:"column:variant_id;type:uuid"`
	OfferID        *uuid.UUID          `gorm:"column:offer_id;type:uuid"`
	SellerID       *uuid.UUID          `gorm:"column:seller_id;type:uuid"`
	ProductName    string              `gorm:"column:product_name;not null"`
	ProductSlug    string              `gorm:"column:product_slug;not null"`
	ProductType    enums.ProductType   `gorm:"column:product_type;size:32;not null"`
	UnitPrice      decimal.Decimal     `gorm:"column:unit_price;type:numeric(18,2);not null"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:numeric(18,2)"`
	Thumbnail      *string             `gorm:"column:thumbnail"`
	Quantity       int                 `gorm:"column:quantity;not null"`
	AuditFields    `gorm:"embedded"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal returns unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
