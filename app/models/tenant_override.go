package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Override kinds are decided when the override is written and never
// re-derived on read.
const (
	OverrideKindLimit   = "limit"
	OverrideKindFeature = "feature"
	OverrideKindOpaque  = "opaque"
)

// TenantOverride is a tenant-specific value that wins over plan and addon
// layers, keyed by (tenant_id, key).
type TenantOverride struct {
	ID       string `gorm:"primaryKey;type:char(36)" json:"-"`
	TenantID string `gorm:"type:varchar(64);not null;index:ux_tenant_overrides_tenant_key,unique,priority:1" json:"tenant_id"`
	// `key` is reserved in MySQL
	Key       string        `gorm:"column:override_key;type:varchar(191);not null;index:ux_tenant_overrides_tenant_key,unique,priority:2" json:"key"`
	Kind      string        `gorm:"type:varchar(16);not null" json:"kind"`
	Value     OverrideValue `json:"value"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TenantOverride) TableName() string { return "tenant_overrides" }

func (o *TenantOverride) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
