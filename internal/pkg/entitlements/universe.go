package entitlements

// featureUniverse is every feature name a snapshot reports. A new feature
// has to be added here; plans only set values for names in this list (or
// extend it for their own tenants).
var featureUniverse = []string{
	"basic_reporting",
	"family_booking",
	"loyalty_points",
	"reviews",
	"advanced_analytics",
	"stylist_matching",
	"ai_booking",
	"variable_pricing",
	"packages",
	"upsell",
	"waitlist",
	"gift_cards",
	"online_store",
	"tiered_loyalty",
	"memberships",
	"smart_no_shows",
	"dynamic_pricing",
	"ai_promotions",
	"staff_utilization",
	"offline_mode",
	"data_export",
	"voice_assistant",
}

var knownFeatures = func() map[string]struct{} {
	m := make(map[string]struct{}, len(featureUniverse))
	for _, name := range featureUniverse {
		m[name] = struct{}{}
	}
	return m
}()

// Limit names understood by the price preview and the override classifier.
const (
	LimitLocations = "locations"
	LimitStylists  = "stylists"
)

// legacyLimitAliases maps old stored limit names to their current names.
var legacyLimitAliases = map[string]string{
	"locations_included": LimitLocations,
	"stylists_included":  LimitStylists,
}

// FeatureNames returns a copy of the feature universe in declaration order.
func FeatureNames() []string {
	out := make([]string, len(featureUniverse))
	copy(out, featureUniverse)
	return out
}

// IsKnownFeature reports whether name is part of the feature universe.
func IsKnownFeature(name string) bool {
	_, ok := knownFeatures[name]
	return ok
}

// CanonicalLimitKey rewrites a legacy limit name to its current name.
func CanonicalLimitKey(key string) string {
	if canonical, ok := legacyLimitAliases[key]; ok {
		return canonical
	}
	return key
}

// IsLegacyLimitAlias reports whether key is an old limit name.
func IsLegacyLimitAlias(key string) bool {
	_, ok := legacyLimitAliases[key]
	return ok
}

func isKnownLimit(key string) bool {
	return key == LimitLocations || key == LimitStylists
}

func baseFeatures() map[string]bool {
	features := make(map[string]bool, len(featureUniverse))
	for _, name := range featureUniverse {
		features[name] = false
	}
	return features
}
