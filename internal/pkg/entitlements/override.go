package entitlements

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/utils"
)

// ClassifiedOverride is an override value resolved to its kind when it is
// written. The merge applies it by Kind and never re-derives it.
type ClassifiedOverride struct {
	Key   string
	Kind  string
	Value models.OverrideValue
}

// ClassifyOverride decides whether key overrides a limit, a feature or is
// an opaque pass-through value, against the tenant's current plan and
// assigned addons. Limit values must be integers and feature values
// booleans.
func ClassifyOverride(key string, raw json.RawMessage, plan *models.Plan, addons []models.Addon) (*ClassifiedOverride, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.Invalid("key", "override key is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.Invalid("value", "override %q has no value", key)
	}
	value, err := utils.DecodeJSON(raw)
	if err != nil {
		return nil, apperrors.Invalid("value", "override %q: %v", key, err)
	}
	canonical, err := json.Marshal(value)
	if err != nil {
		return nil, apperrors.Invalid("value", "override %q: %v", key, err)
	}

	kind := overrideKind(key, plan, addons)
	switch kind {
	case models.OverrideKindLimit:
		if _, err := limitValue(canonical); err != nil {
			return nil, apperrors.Invalid("value", "limit override %q must be an integer", key)
		}
	case models.OverrideKindFeature:
		if _, ok := value.(bool); !ok {
			return nil, apperrors.Invalid("value", "feature override %q must be a boolean", key)
		}
	}

	return &ClassifiedOverride{Key: key, Kind: kind, Value: models.OverrideValue(canonical)}, nil
}

func overrideKind(key string, plan *models.Plan, addons []models.Addon) string {
	if IsLegacyLimitAlias(key) || isKnownLimit(key) {
		return models.OverrideKindLimit
	}
	if plan != nil {
		for name := range plan.LimitsMap() {
			if CanonicalLimitKey(name) == key {
				return models.OverrideKindLimit
			}
		}
		if _, ok := plan.FeaturesMap()[key]; ok {
			return models.OverrideKindFeature
		}
	}
	if IsKnownFeature(key) {
		return models.OverrideKindFeature
	}
	for _, addon := range addons {
		if v, ok := addon.Effect[key]; ok {
			if _, isBool := v.(bool); isBool {
				return models.OverrideKindFeature
			}
		}
	}
	return models.OverrideKindOpaque
}

func limitValue(raw []byte) (int64, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, err
	}
	return n.Int64()
}
