package rules

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
)

// AssignmentsView is the tenant's stored configuration, returned by every
// mutation and by the assignments read.
type AssignmentsView struct {
	TenantID           string                     `json:"tenant_id"`
	Plan               PlanView                   `json:"plan"`
	Addons             []AddonView                `json:"addons"`
	Overrides          map[string]json.RawMessage `json:"overrides"`
	OveragePricingRefs OverageRefsView            `json:"overage_pricing_refs"`
	Version            int                        `json:"version"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

type PlanView struct {
	Code       string         `json:"code"`
	PricingRef *string        `json:"pricing_ref"`
	Meta       map[string]any `json:"meta"`
	Version    int            `json:"version"`
}

type AddonView struct {
	Code       string         `json:"code"`
	Qty        int            `json:"qty"`
	Meta       map[string]any `json:"meta"`
	PricingRef *string        `json:"pricing_ref"`
}

type OverageRefsView struct {
	TenantID       string `json:"tenant_id,omitempty"`
	PerStylistRef  string `json:"per_stylist_ref"`
	PerLocationRef string `json:"per_location_ref"`
}

func overageRefsView(tenantID string, refs *models.OveragePriceRefs) OverageRefsView {
	return OverageRefsView{
		TenantID:       tenantID,
		PerStylistRef:  refs.PerStylist(),
		PerLocationRef: refs.PerLocation(),
	}
}

// buildView reads the tenant's addons, overrides and overage refs through
// repo. Inside a ledger mutation repo must be bound to the transaction.
func buildView(ctx context.Context, repo repository.AssignmentRepository, tp *models.TenantPlan) (*AssignmentsView, error) {
	addons, err := repo.ListAddons(ctx, tp.TenantID)
	if err != nil {
		return nil, err
	}
	overrides, err := repo.ListOverrides(ctx, tp.TenantID)
	if err != nil {
		return nil, err
	}
	refs, err := repo.GetOverageRefs(ctx, tp.TenantID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	view := &AssignmentsView{
		TenantID: tp.TenantID,
		Plan: PlanView{
			Code:       tp.PlanCode,
			PricingRef: tp.PricingRef,
			Meta:       nonNilMeta(tp.Meta),
			Version:    tp.Version,
		},
		Addons:             make([]AddonView, 0, len(addons)),
		Overrides:          make(map[string]json.RawMessage, len(overrides)),
		OveragePricingRefs: overageRefsView("", refs),
		Version:            tp.Version,
		CreatedAt:          tp.CreatedAt.UTC(),
		UpdatedAt:          tp.UpdatedAt.UTC(),
	}
	for _, ta := range addons {
		view.Addons = append(view.Addons, AddonView{
			Code:       ta.AddonCode,
			Qty:        ta.Qty,
			Meta:       nonNilMeta(ta.Meta),
			PricingRef: ta.PricingRef,
		})
	}
	for _, o := range overrides {
		view.Overrides[o.Key] = json.RawMessage(o.Value)
	}
	return view, nil
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
