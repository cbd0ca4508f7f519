package entitlements

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/utils"
)

// Merge computes the snapshot of one tenant aggregate. It has no side
// effects; agg.OverageRefs nil means the baseline refs apply.
//
// Precedence, later wins: feature universe (all false), plan features,
// boolean addon effects (by addon code), plan limits with legacy names
// rewritten, overrides by their stored kind.
func Merge(agg *repository.Aggregate, ttlHintSec int) (*Snapshot, error) {
	features := baseFeatures()
	for name, enabled := range agg.Plan.FeaturesMap() {
		features[name] = enabled
	}

	addons := make([]repository.AddonAssignment, len(agg.Addons))
	copy(addons, agg.Addons)
	sort.Slice(addons, func(i, j int) bool {
		return addons[i].Assignment.AddonCode < addons[j].Assignment.AddonCode
	})

	addonRefs := make(map[string]string, len(addons))
	for _, a := range addons {
		if a.Addon == nil {
			continue
		}
		for name, v := range a.Addon.Effect {
			if enabled, ok := v.(bool); ok {
				features[name] = enabled
			}
		}
		addonRefs[a.Addon.Code] = firstRef(a.Assignment.PricingRef, a.Addon.PricingRef)
	}

	limits := migrateLimits(agg.Plan.LimitsMap())

	extras := map[string]any{}
	overrides := make([]models.TenantOverride, len(agg.Overrides))
	copy(overrides, agg.Overrides)
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].Key < overrides[j].Key })
	for _, o := range overrides {
		switch o.Kind {
		case models.OverrideKindLimit:
			n, err := limitValue(o.Value)
			if err != nil {
				return nil, fmt.Errorf("override %q: stored limit is not an integer: %w", o.Key, err)
			}
			limits[CanonicalLimitKey(o.Key)] = n
		case models.OverrideKindFeature:
			var enabled bool
			if err := json.Unmarshal(o.Value, &enabled); err != nil {
				return nil, fmt.Errorf("override %q: stored feature is not a boolean: %w", o.Key, err)
			}
			features[o.Key] = enabled
		default:
			v, err := utils.DecodeJSON(o.Value)
			if err != nil {
				return nil, fmt.Errorf("override %q: %w", o.Key, err)
			}
			extras[o.Key] = v
		}
	}

	policy := make(map[string]bool)
	for name, allowed := range agg.Plan.OveragePolicyMap() {
		policy[name] = allowed
	}

	return &Snapshot{
		TenantID:      agg.Assignment.TenantID,
		Plan:          agg.Plan.Code,
		Limits:        limits,
		Features:      features,
		OveragePolicy: policy,
		Extras:        extras,
		PricingRefs: PricingRefs{
			Plan:   firstRef(agg.Assignment.PricingRef, agg.Plan.PricingRef),
			Addons: addonRefs,
			Overage: OverageRefs{
				PerStylist:  agg.OverageRefs.PerStylist(),
				PerLocation: agg.OverageRefs.PerLocation(),
			},
		},
		Version:    agg.Assignment.Version,
		UpdatedAt:  agg.Assignment.UpdatedAt.UTC(),
		TTLHintSec: ttlHintSec,
	}, nil
}

// migrateLimits copies limits with legacy names rewritten. A legacy entry
// wins over a current-name entry for the same limit.
func migrateLimits(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for name, v := range in {
		if !IsLegacyLimitAlias(name) {
			out[name] = v
		}
	}
	for name, v := range in {
		if IsLegacyLimitAlias(name) {
			out[CanonicalLimitKey(name)] = v
		}
	}
	return out
}

func firstRef(refs ...*string) string {
	for _, ref := range refs {
		if ref != nil && *ref != "" {
			return *ref
		}
	}
	return ""
}
