package catalog

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
)

var allowAllOverage = map[string]bool{
	"allow_extra_locations": true,
	"allow_extra_stylists":  true,
}

func ref(s string) *string { return &s }

// DefaultPlans is the standard Silver, Gold and Platinum catalog. Limits use
// the legacy *_included names the pricebook was written against.
func DefaultPlans() []PlanInput {
	return []PlanInput{
		{
			Code:          "silver",
			Name:          "Silver",
			Limits:        map[string]int64{"locations_included": 1, "stylists_included": 5},
			Features:      map[string]bool{"basic_reporting": true},
			OveragePolicy: allowAllOverage,
			PricingRef:    ref("pricebook/plans/silver@v1"),
		},
		{
			Code:   "gold",
			Name:   "Gold",
			Limits: map[string]int64{"locations_included": 2, "stylists_included": 10},
			Features: map[string]bool{
				"family_booking":     true,
				"loyalty_points":     true,
				"reviews":            true,
				"advanced_analytics": true,
				"stylist_matching":   true,
			},
			OveragePolicy: allowAllOverage,
			PricingRef:    ref("pricebook/plans/gold@v1"),
		},
		{
			Code:   "platinum",
			Name:   "Platinum",
			Limits: map[string]int64{"locations_included": 3, "stylists_included": 20},
			Features: map[string]bool{
				"online_store":      true,
				"tiered_loyalty":    true,
				"memberships":       true,
				"smart_no_shows":    true,
				"dynamic_pricing":   true,
				"ai_promotions":     true,
				"staff_utilization": true,
				"offline_mode":      true,
				"data_export":       true,
				"voice_assistant":   true,
			},
			OveragePolicy: allowAllOverage,
			PricingRef:    ref("pricebook/plans/platinum@v1"),
		},
	}
}

// DefaultAddons is the standard addon catalog.
func DefaultAddons() []AddonInput {
	addon := func(code, name, description, pricingRef string, effect map[string]any) AddonInput {
		return AddonInput{
			Code:       code,
			Name:       name,
			Meta:       map[string]any{"description": description},
			Effect:     effect,
			PricingRef: ref(pricingRef),
		}
	}
	return []AddonInput{
		addon("ai_booking", "AI Booking", "Enables AI-powered booking features",
			"pricebook/addons/ai_booking@v1", map[string]any{"ai_booking": true}),
		addon("variable_pricing", "Variable Pricing", "Enables dynamic pricing features",
			"pricebook/addons/variable_pricing@v1", map[string]any{"variable_pricing": true}),
		addon("value_pack", "Value Pack", "Package deals, upsell, and waitlist features",
			"pricebook/addons/value_pack@v2", map[string]any{"packages": true, "upsell": true, "waitlist": true, "gift_cards": true}),
		addon("family_booking", "Family Booking", "Family booking features for Silver plans",
			"pricebook/addons/family_booking@v1", map[string]any{"family_booking": true}),
		addon("gift_cards", "Gift Cards", "Gift card features for Silver plans",
			"pricebook/addons/gift_cards@v1", map[string]any{"gift_cards": true}),
	}
}

// SeedResult counts what Seed did.
type SeedResult struct {
	Created int
	Updated int
}

// Seed creates each plan and addon, or replaces the existing definition
// with the same code. Tenant assignments are left alone.
func (s *Service) Seed(ctx context.Context, plans []PlanInput, addons []AddonInput) (SeedResult, error) {
	var res SeedResult
	for _, in := range plans {
		_, err := s.CreatePlan(ctx, in)
		switch {
		case err == nil:
			res.Created++
		case apperrors.IsConflict(err):
			if _, err := s.UpdatePlan(ctx, in.Code, in); err != nil {
				return res, err
			}
			res.Updated++
		default:
			return res, err
		}
	}
	for _, in := range addons {
		_, err := s.CreateAddon(ctx, in)
		switch {
		case err == nil:
			res.Created++
		case apperrors.IsConflict(err):
			if _, err := s.UpdateAddon(ctx, in.Code, in); err != nil {
				return res, err
			}
			res.Updated++
		default:
			return res, err
		}
	}
	log.Infof("catalog seeded: %d created, %d updated", res.Created, res.Updated)
	return res, nil
}
