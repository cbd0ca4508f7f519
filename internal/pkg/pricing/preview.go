package pricing

import (
	"sort"

	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
)

const (
	OverageKindPerStylist  = "per_stylist"
	OverageKindPerLocation = "per_location"
)

// LineItem is a resolved reference. A nil amount means the price is unknown.
type LineItem struct {
	Ref         string `json:"ref"`
	AmountCents *int64 `json:"amount_cents"`
}

type AddonLineItem struct {
	Code        string `json:"code"`
	Ref         string `json:"ref"`
	AmountCents *int64 `json:"amount_cents"`
}

type OverageLineItem struct {
	Kind          string `json:"kind"`
	Units         int64  `json:"units"`
	RateRef       string `json:"rate_ref"`
	RateCents     *int64 `json:"rate_cents"`
	SubtotalCents *int64 `json:"subtotal_cents"`
}

// Preview prices a tenant's snapshot, optionally for a projected usage.
type Preview struct {
	TenantID   string            `json:"tenant_id"`
	Version    int               `json:"version"`
	Plan       LineItem          `json:"plan"`
	Addons     []AddonLineItem   `json:"addons"`
	Overages   []OverageLineItem `json:"overages"`
	TotalCents *int64            `json:"total_cents"`
}

// Usage is the projected head count; nil fields are not priced.
type Usage struct {
	Stylists  *int64
	Locations *int64
}

// Refs lists every reference a preview of snap may need.
func Refs(snap *entitlements.Snapshot) []string {
	refs := []string{snap.PricingRefs.Plan, snap.PricingRefs.Overage.PerStylist, snap.PricingRefs.Overage.PerLocation}
	for _, ref := range snap.PricingRefs.Addons {
		refs = append(refs, ref)
	}
	return refs
}

// BuildPreview combines a snapshot with resolved prices. Overage units are
// usage above the snapshot limit. The total is unknown when the plan price
// is unknown; otherwise unknown addon and overage prices are left out.
func BuildPreview(snap *entitlements.Snapshot, prices map[string]*Price, usage Usage) *Preview {
	p := &Preview{
		TenantID: snap.TenantID,
		Version:  snap.Version,
		Plan:     LineItem{Ref: snap.PricingRefs.Plan, AmountCents: amount(prices, snap.PricingRefs.Plan)},
		Addons:   []AddonLineItem{},
		Overages: []OverageLineItem{},
	}

	codes := make([]string, 0, len(snap.PricingRefs.Addons))
	for code, ref := range snap.PricingRefs.Addons {
		if ref != "" {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	for _, code := range codes {
		ref := snap.PricingRefs.Addons[code]
		p.Addons = append(p.Addons, AddonLineItem{Code: code, Ref: ref, AmountCents: amount(prices, ref)})
	}

	if item, ok := overage(OverageKindPerStylist, usage.Stylists, snap.Limits[entitlements.LimitStylists], snap.PricingRefs.Overage.PerStylist, prices); ok {
		p.Overages = append(p.Overages, item)
	}
	if item, ok := overage(OverageKindPerLocation, usage.Locations, snap.Limits[entitlements.LimitLocations], snap.PricingRefs.Overage.PerLocation, prices); ok {
		p.Overages = append(p.Overages, item)
	}

	if p.Plan.AmountCents != nil {
		total := *p.Plan.AmountCents
		for _, a := range p.Addons {
			if a.AmountCents != nil {
				total += *a.AmountCents
			}
		}
		for _, o := range p.Overages {
			if o.SubtotalCents != nil {
				total += *o.SubtotalCents
			}
		}
		p.TotalCents = &total
	}
	return p
}

func overage(kind string, used *int64, limit int64, ref string, prices map[string]*Price) (OverageLineItem, bool) {
	if used == nil || *used <= limit {
		return OverageLineItem{}, false
	}
	units := *used - limit
	item := OverageLineItem{Kind: kind, Units: units, RateRef: ref, RateCents: amount(prices, ref)}
	if item.RateCents != nil {
		subtotal := *item.RateCents * units
		item.SubtotalCents = &subtotal
	}
	return item, true
}

func amount(prices map[string]*Price, ref string) *int64 {
	if ref == "" {
		return nil
	}
	price := prices[ref]
	if price == nil {
		return nil
	}
	v := price.AmountCents
	return &v
}
