package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Notification stores in-app notification payloads addressed to a user.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;size:32;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Message     string                 `gorm:"column:message;type:text;not null"`
	ReferenceID *uuid.UUID             `gorm:"column:reference_id;type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
