package models

import (
	"time"

	"gorm.io/datatypes"
)

// Addon is an optional feature-effect bundle. Effect entries with boolean
// values are applied verbatim onto a tenant's features.
type Addon struct {
	Code       string            `gorm:"primaryKey;type:varchar(64)" json:"code"`
	Name       string            `gorm:"type:varchar(255);not null" json:"name"`
	Meta       datatypes.JSONMap `json:"meta"`
	Effect     datatypes.JSONMap `json:"effect"`
	PricingRef *string           `gorm:"type:varchar(191)" json:"pricing_ref"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Addon) TableName() string { return "addons" }
