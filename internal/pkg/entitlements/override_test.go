package entitlements

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
)

func TestClassifyOverride(t *testing.T) {
	plan := &models.Plan{
		Code:     "silver",
		Limits:   datatypes.NewJSONType(map[string]int64{"seats_included": 3, "locations_included": 1}),
		Features: datatypes.NewJSONType(map[string]bool{"custom_domain": true}),
	}
	addons := []models.Addon{
		{Code: "kiosk", Effect: datatypes.JSONMap{"kiosk_mode": true, "kiosk_count": 2}},
	}

	tests := []struct {
		name  string
		key   string
		value string
		kind  string
		want  string
	}{
		{"known limit", "stylists", `10`, models.OverrideKindLimit, `10`},
		{"legacy alias", "locations_included", `2`, models.OverrideKindLimit, `2`},
		{"plan limit", "seats_included", `4`, models.OverrideKindLimit, `4`},
		{"universe feature", "waitlist", `true`, models.OverrideKindFeature, `true`},
		{"plan feature", "custom_domain", `false`, models.OverrideKindFeature, `false`},
		{"addon boolean effect", "kiosk_mode", `false`, models.OverrideKindFeature, `false`},
		{"addon non-boolean effect", "kiosk_count", `5`, models.OverrideKindOpaque, `5`},
		{"opaque object", "theme", `{ "b": 1, "a": [true] }`, models.OverrideKindOpaque, `{"a":[true],"b":1}`},
		{"opaque string", "note", `"hello"`, models.OverrideKindOpaque, `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ClassifyOverride(tt.key, json.RawMessage(tt.value), plan, addons)
			require.NoError(t, err)
			assert.Equal(t, tt.key, c.Key)
			assert.Equal(t, tt.kind, c.Kind)
			assert.JSONEq(t, tt.want, string(c.Value))
		})
	}
}

func TestClassifyOverride_TypeChecks(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"limit must be integer", "stylists", `"ten"`},
		{"limit rejects fraction", "locations", `1.5`},
		{"feature must be boolean", "reviews", `1`},
		{"empty key", " ", `1`},
		{"empty value", "x", ``},
		{"malformed", "x", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ClassifyOverride(tt.key, json.RawMessage(tt.value), nil, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}
