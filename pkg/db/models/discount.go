package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// DiscountCode owns its global usage counter and per-audience caps.
type DiscountCode struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Code              string                `gorm:"column:code;size:64;not null;uniqueIndex"`
	Type              enums.DiscountType    `gorm:"column:type;size:32;not null"`
	Value             decimal.Decimal       `gorm:"column:value;type:numeric(18,2);not null"`
	MaxDiscountAmount decimal.NullDecimal   `gorm:"column:max_discount_amount;type:numeric(18,2)"`
	MinOrderAmount    decimal.NullDecimal   `gorm:"column:min_order_amount;type:numeric(18,2)"`
	StartsAt          *time.Time            `gorm:"column:starts_at"`
	EndsAt            *time.Time            `gorm:"column:ends_at"`
	IsActive          bool                  `gorm:"column:is_active;not null"`
	UsageLimit        *int                  `gorm:"column:usage_limit"`
	UsedCount         int                   `gorm:"column:used_count;not null"`
	AudienceCaps      []DiscountAudienceCap `gorm:"foreignKey:DiscountCodeID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (DiscountCode) TableName() string { return "discount_codes" }

func (d *DiscountCode) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// CapFor returns the cap configured for the audience group, if any.
func (d DiscountCode) CapFor(group enums.AudienceGroup) (DiscountAudienceCap, bool) {
	for _, c := range d.AudienceCaps {
		if c.AudienceGroup == group {
			return c, true
		}
	}
	return DiscountAudienceCap{}, false
}

// DiscountAudienceCap limits how often one audience member may redeem a code.
type DiscountAudienceCap struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	DiscountCodeID uuid.UUID           `gorm:"column:discount_code_id;type:uuid;not null;uniqueIndex:ux_discount_audience_cap"`
	AudienceGroup  enums.AudienceGroup `gorm:"column:audience_group;size:32;not null;uniqueIndex:ux_discount_audience_cap"`
	UsageLimit     int                 `gorm:"column:usage_limit;not null"`
}

func (DiscountAudienceCap) TableName() string { return "discount_audience_caps" }

func (c *DiscountAudienceCap) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// DiscountAudienceUsage counts redemptions for one audience member.
type DiscountAudienceUsage struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	DiscountCodeID uuid.UUID           `gorm:"column:discount_code_id;type:uuid;not null;uniqueIndex:ux_discount_audience_usage"`
	AudienceGroup  enums.AudienceGroup `gorm:"column:audience_group;size:32;not null;uniqueIndex:ux_discount_audience_usage"`
	AudienceKey    string              `gorm:"column:audience_key;size:64;not null;uniqueIndex:ux_discount_audience_usage"`
	UsedCount      int                 `gorm:"column:used_count;not null"`
}

func (DiscountAudienceUsage) TableName() string { return "discount_audience_usages" }

func (u *DiscountAudienceUsage) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
