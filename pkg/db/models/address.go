package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAddress is a saved shipping destination owned by one user.
type UserAddress struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	RecipientName  string    `gorm:"column:recipient_name;not null"`
	RecipientPhone string    `gorm:"column:recipient_phone;size:32;not null"`
	Province       string    `gorm:"column:province;not null"`
	City           string    `gorm:"column:city;not null"`
	PostalCode     string    `gorm:"column:postal_code;size:32;not null"`
	AddressLine    string    `gorm:"column:address_line;not null"`
	Plaque         *string   `gorm:"column:plaque;size:32"`
	Unit           *string   `gorm:"column:unit;size:32"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserAddress) TableName() string { return "user_addresses" }

func (a *UserAddress) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
