package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan is a named bundle of baseline limits and feature flags a tenant
// subscribes to.
type Plan struct {
	Code          string                               `gorm:"primaryKey;type:varchar(64)" json:"code"`
	Name          string                               `gorm:"type:varchar(255);not null" json:"name"`
	Limits        datatypes.JSONType[map[string]int64] `json:"limits"`
	Features      datatypes.JSONType[map[string]bool]  `json:"features"`
	OveragePolicy datatypes.JSONType[map[string]bool]  `json:"overage_policy"`
	PricingRef    *string                              `gorm:"type:varchar(191)" json:"pricing_ref"`
	CreatedAt     time.Time                            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }

// LimitsMap returns the stored limits, never nil.
func (p *Plan) LimitsMap() map[string]int64 {
	if m := p.Limits.Data(); m != nil {
		return m
	}
	return map[string]int64{}
}

// FeaturesMap returns the stored feature flags, never nil.
func (p *Plan) FeaturesMap() map[string]bool {
	if m := p.Features.Data(); m != nil {
		return m
	}
	return map[string]bool{}
}

// OveragePolicyMap returns the stored overage policy, never nil.
func (p *Plan) OveragePolicyMap() map[string]bool {
	if m := p.OveragePolicy.Data(); m != nil {
		return m
	}
	return map[string]bool{}
}
