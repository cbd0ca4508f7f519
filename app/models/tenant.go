package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TenantStatusActive    = "active"
	TenantStatusDisabled  = "disabled"
	TenantStatusSuspended = "suspended"
)

// Tenant is a billable customer account.
type Tenant struct {
	ID        string            `gorm:"primaryKey;type:char(26)" json:"tenant_id"` // ULID
	Slug      string            `gorm:"type:varchar(50);not null;uniqueIndex" json:"slug"`
	Name      string            `gorm:"type:varchar(255);not null" json:"name"`
	Status    string            `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Theme     datatypes.JSONMap `json:"theme,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }
