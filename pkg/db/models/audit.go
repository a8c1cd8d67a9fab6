package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditFields records who touched a row, when, and from where. Timestamps are
// stamped explicitly by the audit package rather than by GORM hooks.
type AuditFields struct {
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	CreatedIP string     `gorm:"column:created_ip;size:64"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	UpdatedBy *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	UpdatedIP string     `gorm:"column:updated_ip;size:64"`
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
