package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Invoice is produced by checkout. Adjustment is negative when a discount was
// redeemed.
type Invoice struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Title            string                  `gorm:"column:title;not null"`
	Currency         string                  `gorm:"column:currency;size:8;not null"`
	Status           enums.InvoiceStatus     `gorm:"column:status;size:32;not null"`
	IssuedAt         time.Time               `gorm:"column:issued_at;not null"`
	DueAt            time.Time               `gorm:"column:due_at;not null"`
	SubtotalAmount   decimal.Decimal         `gorm:"column:subtotal_amount;type:numeric(18,2);not null"`
	TaxAmount        decimal.Decimal         `gorm:"column:tax_amount;type:numeric(18,2);not null"`
	AdjustmentAmount decimal.Decimal         `gorm:"column:adjustment_amount;type:numeric(18,2);not null"`
	TotalAmount      decimal.Decimal         `gorm:"column:total_amount;type:numeric(18,2);not null"`
	ExternalRef      string                  `gorm:"column:external_ref;size:64;index"`
	Shipping         *types.ShippingSnapshot `gorm:"column:shipping;type:jsonb;serializer:json"`
	Items            []InvoiceItem           `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

type InvoiceItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID   uuid.UUID             `gorm:"column:invoice_id;type:uuid;not null;index"`
	Position    int                   `gorm:"column:position;not null"`
	Name        string                `gorm:"column:name;not null"`
	Type        enums.InvoiceItemType `gorm:"column:type;size:32;not null"`
	ReferenceID uuid.UUID             `gorm:"column:reference_id;type:uuid;not null"`
	VariantID   *uuid.UUID            `gorm:"column:variant_id;type:uuid"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal       `gorm:"column:unit_price;type:numeric(18,2);not null"`
	LineTotal   decimal.Decimal       `gorm:"column:line_total;type:numeric(18,2);not null"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (i *InvoiceItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
