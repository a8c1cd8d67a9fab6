package models

import "time"

// Setting is a key/value row for operator-managed configuration.
type Setting struct {
	Key       string    `gorm:"column:key;size:64;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

const SettingKeyVATPercent = "vat_percent"
