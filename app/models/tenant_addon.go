package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TenantAddon attaches an addon to a tenant, keyed by (tenant_id, addon_code).
type TenantAddon struct {
	ID         string            `gorm:"primaryKey;type:char(36)" json:"-"`
	TenantID   string            `gorm:"type:varchar(64);not null;index:ux_tenant_addons_tenant_code,unique,priority:1" json:"tenant_id"`
	AddonCode  string            `gorm:"type:varchar(64);not null;index:ux_tenant_addons_tenant_code,unique,priority:2;index" json:"addon_code"`
	Qty        int               `gorm:"not null;default:1" json:"qty"`
	Meta       datatypes.JSONMap `json:"meta"`
	PricingRef *string           `gorm:"type:varchar(191)" json:"pricing_ref"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TenantAddon) TableName() string { return "tenant_addons" }

func (ta *TenantAddon) BeforeCreate(tx *gorm.DB) error {
	if ta.ID == "" {
		ta.ID = uuid.NewString()
	}
	if ta.Qty == 0 {
		ta.Qty = 1
	}
	return nil
}
