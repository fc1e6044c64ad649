package models

import "time"

// Well-known setting keys.
const (
	SettingCompensationEnabled = "compensation_enabled"
	SettingCommissionSlotLimit = "commission_slot_limit"
)

// Setting represents a system setting stored as a key/value pair.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
