package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/RulesService/app/models"
)

func TestSeed_CreatesThenUpdates(t *testing.T) {
	svc, repos, _ := newCatalog(t)
	ctx := context.Background()

	res, err := svc.Seed(ctx, DefaultPlans(), DefaultAddons())
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Created: 8}, res)

	gold, err := svc.GetPlan(ctx, "gold")
	require.NoError(t, err)
	assert.Equal(t, int64(10), gold.LimitsMap()["stylists_included"])
	require.NotNil(t, gold.PricingRef)
	assert.Equal(t, "pricebook/plans/gold@v1", *gold.PricingRef)

	require.NoError(t, repos.Assignment.CreateTenantPlan(ctx, &models.TenantPlan{TenantID: "ten_1", PlanCode: "gold"}))

	res, err = svc.Seed(ctx, DefaultPlans(), DefaultAddons())
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Updated: 8}, res)

	plans, err := svc.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 3)
	addons, err := svc.ListAddons(ctx)
	require.NoError(t, err)
	assert.Len(t, addons, 5)

	tp, err := repos.Assignment.GetTenantPlan(ctx, "ten_1")
	require.NoError(t, err)
	assert.Equal(t, "gold", tp.PlanCode)
}

func TestSeed_StopsOnInvalidInput(t *testing.T) {
	svc, _, _ := newCatalog(t)
	_, err := svc.Seed(context.Background(), []PlanInput{{Code: "nameless"}}, nil)
	assert.Error(t, err)
}
