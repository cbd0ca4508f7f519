package models

import "time"

// Baseline overage pricing references used until a tenant sets its own.
const (
	DefaultPerStylistRef  = "pricebook/overage/stylist@v1"
	DefaultPerLocationRef = "pricebook/overage/location@v1"
)

// OveragePriceRefs holds the per-tenant overage rate references.
type OveragePriceRefs struct {
	TenantID       string    `gorm:"primaryKey;type:varchar(64)" json:"tenant_id"`
	PerStylistRef  *string   `gorm:"type:varchar(191)" json:"per_stylist_ref"`
	PerLocationRef *string   `gorm:"type:varchar(191)" json:"per_location_ref"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OveragePriceRefs) TableName() string { return "overage_price_refs" }

// NewBaselineOverageRefs returns the default record for a tenant.
func NewBaselineOverageRefs(tenantID string) *OveragePriceRefs {
	stylist, location := DefaultPerStylistRef, DefaultPerLocationRef
	return &OveragePriceRefs{
		TenantID:       tenantID,
		PerStylistRef:  &stylist,
		PerLocationRef: &location,
	}
}

// PerStylist returns the stylist rate ref, falling back to the baseline.
func (r *OveragePriceRefs) PerStylist() string {
	if r == nil || r.PerStylistRef == nil || *r.PerStylistRef == "" {
		return DefaultPerStylistRef
	}
	return *r.PerStylistRef
}

// PerLocation returns the location rate ref, falling back to the baseline.
func (r *OveragePriceRefs) PerLocation() string {
	if r == nil || r.PerLocationRef == nil || *r.PerLocationRef == "" {
		return DefaultPerLocationRef
	}
	return *r.PerLocationRef
}
