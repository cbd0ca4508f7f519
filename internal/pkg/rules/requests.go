package rules

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
)

var validate = validator.New()

// PlanAssignment assigns or reassigns a tenant's plan.
type PlanAssignment struct {
	PlanCode   string         `json:"plan_code" validate:"required,max=64"`
	PricingRef *string        `json:"pricing_ref,omitempty" validate:"omitempty,max=191"`
	Meta       map[string]any `json:"meta,omitempty"`
}

func (r *PlanAssignment) Validate() error {
	r.PlanCode = strings.TrimSpace(r.PlanCode)
	return apperrors.FromValidator(validate.Struct(r))
}

// AddonUpsert creates or replaces one addon assignment.
type AddonUpsert struct {
	Code       string         `json:"code" validate:"required,max=64"`
	Qty        int            `json:"qty" validate:"gte=0"`
	Meta       map[string]any `json:"meta,omitempty"`
	PricingRef *string        `json:"pricing_ref,omitempty" validate:"omitempty,max=191"`
}

// AddonChanges is one addon request. All items count as one mutation.
type AddonChanges struct {
	Add    []string      `json:"add,omitempty" validate:"dive,required,max=64"`
	Remove []string      `json:"remove,omitempty" validate:"dive,required,max=64"`
	Upsert []AddonUpsert `json:"upsert,omitempty" validate:"dive"`
}

func (r *AddonChanges) Validate() error {
	trimAll(r.Add)
	trimAll(r.Remove)
	for i := range r.Upsert {
		r.Upsert[i].Code = strings.TrimSpace(r.Upsert[i].Code)
	}
	return apperrors.FromValidator(validate.Struct(r))
}

func trimAll(values []string) {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
}

// OverrideUpsert sets one override. Value is any JSON value except null.
type OverrideUpsert struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// OverrideChanges is one override request. All items count as one mutation.
type OverrideChanges struct {
	Upsert []OverrideUpsert `json:"upsert,omitempty"`
	Remove []string         `json:"remove,omitempty"`
}

func (r *OverrideChanges) Validate() error {
	for i := range r.Upsert {
		item := &r.Upsert[i]
		item.Key = strings.TrimSpace(item.Key)
		value := bytes.TrimSpace(item.Value)
		if item.Key == "" || len(value) == 0 || bytes.Equal(value, []byte("null")) {
			return apperrors.Invalid("upsert", "override items must have 'key' and 'value' fields")
		}
		if len(item.Key) > 191 {
			return apperrors.Invalid("upsert", "override key %q is too long", item.Key)
		}
	}
	for i, key := range r.Remove {
		r.Remove[i] = strings.TrimSpace(key)
		if r.Remove[i] == "" {
			return apperrors.Invalid("remove", "override keys must not be empty")
		}
	}
	return nil
}

// OverageRefsUpdate sets the overage rate references. Nil fields are kept.
type OverageRefsUpdate struct {
	PerStylistRef  *string `json:"per_stylist_ref,omitempty" validate:"omitempty,max=191"`
	PerLocationRef *string `json:"per_location_ref,omitempty" validate:"omitempty,max=191"`
}

func (r *OverageRefsUpdate) Validate() error {
	return apperrors.FromValidator(validate.Struct(r))
}
