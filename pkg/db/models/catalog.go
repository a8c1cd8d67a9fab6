package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a catalog entry. Custom-order products are listed but cannot be
// purchased through the cart.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID       *uuid.UUID          `gorm:"column:seller_id;type:uuid;index"`
	Name           string              `gorm:"column:name;not null"`
	Slug           string              `gorm:"column:slug;not null;uniqueIndex"`
	Type           enums.ProductType   `gorm:"column:type;size:32;not null"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(18,2);not null"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:numeric(18,2)"`
	TrackInventory bool                `gorm:"column:track_inventory;not null"`
	StockQuantity  int                 `gorm:"column:stock_quantity;not null"`
	IsCustomOrder  bool                `gorm:"column:is_custom_order;not null"`
	IsPublished    bool                `gorm:"column:is_published;not null"`
	FeaturedImage  *string             `gorm:"column:featured_image"`
	Variants       []ProductVariant    `gorm:"foreignKey:ProductID"`
	DeletedAt      gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// HasActiveVariants reports whether the product exposes a variant choice.
func (p Product) HasActiveVariants() bool {
	for _, v := range p.Variants {
		if v.IsActive {
			return true
		}
	}
	return false
}

// ProductVariant overrides price and stock for one configuration of a
// product. A zero stock quantity shares the product's pool.
type ProductVariant struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Name           string              `gorm:"column:name;not null"`
	Price          decimal.NullDecimal `gorm:"column:price;type:numeric(18,2)"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:numeric(18,2)"`
	StockQuantity  int                 `gorm:"column:stock_quantity;not null"`
	IsActive       bool                `gorm:"column:is_active;not null"`
	Image          *string             `gorm:"column:image"`
}

func (ProductVariant) TableName() string { return "product_variants" }

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Offer is a seller's own listing of a shared product.
type Offer struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	SellerID       *uuid.UUID          `gorm:"column:seller_id;type:uuid;index"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(18,2);not null"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:numeric(18,2)"`
	TrackInventory bool                `gorm:"column:track_inventory;not null"`
	StockQuantity  int                 `gorm:"column:stock_quantity;not null"`
	IsActive       bool                `gorm:"column:is_active;not null"`
	IsPublished    bool                `gorm:"column:is_published;not null"`
}

func (Offer) TableName() string { return "offers" }

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Seller is a merchant profile. UserID is the account that receives sale
// notifications.
type Seller struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	DisplayName string         `gorm:"column:display_name;not null"`
	IsActive    bool           `gorm:"column:is_active;not null"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Seller) TableName() string { return "sellers" }

func (s *Seller) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Usable reports whether the seller may currently sell.
func (s Seller) Usable() bool {
	return s.IsActive && !s.DeletedAt.Valid
}
