package models

import (
	"time"

	"gorm.io/datatypes"
)

// TenantPlan assigns a plan to a tenant. Version is the tenant's
// configuration version and is only ever changed through the ledger.
type TenantPlan struct {
	TenantID   string            `gorm:"primaryKey;type:varchar(64)" json:"tenant_id"`
	PlanCode   string            `gorm:"type:varchar(64);not null;index" json:"plan_code"`
	PricingRef *string           `gorm:"type:varchar(191)" json:"pricing_ref"`
	Meta       datatypes.JSONMap `json:"meta"`
	Version    int               `gorm:"not null;default:1" json:"version"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TenantPlan) TableName() string { return "tenant_plans" }
