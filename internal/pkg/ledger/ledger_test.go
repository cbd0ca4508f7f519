package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/testhelpers"
)

func create(tenantID string) MutationFunc {
	return func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
		return Created, tx.Create(&models.TenantPlan{TenantID: tenantID, PlanCode: "silver", Version: 1}).Error
	}
}

func touch(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
	return Changed, tx.Model(&models.TenantPlan{}).Where("tenant_id = ?", current.TenantID).
		Update("pricing_ref", "x").Error
}

func noop(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
	return Unchanged, nil
}

func TestLedger_CreateThenBump(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))
	ctx := context.Background()

	_, err := l.Current(ctx, "ten_1")
	assert.True(t, apperrors.IsNotFound(err))

	res, err := l.Mutate(ctx, "ten_1", create("ten_1"))
	require.NoError(t, err)
	assert.Equal(t, Created, res.Outcome)
	assert.Equal(t, 0, res.PreviousVersion)
	assert.Equal(t, 1, res.Assignment.Version)
	assert.True(t, res.Changed())

	for want := 2; want <= 4; want++ {
		res, err = l.Mutate(ctx, "ten_1", touch)
		require.NoError(t, err)
		assert.Equal(t, want-1, res.PreviousVersion)
		assert.Equal(t, want, res.Assignment.Version)
	}

	v, err := l.Current(ctx, "ten_1")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestLedger_UnchangedDoesNotBump(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))
	ctx := context.Background()
	_, err := l.Mutate(ctx, "ten_1", create("ten_1"))
	require.NoError(t, err)

	res, err := l.Mutate(ctx, "ten_1", noop)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, 1, res.Assignment.Version)
}

func TestLedger_ErrorRollsBack(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	l := New(db)
	ctx := context.Background()
	_, err := l.Mutate(ctx, "ten_1", create("ten_1"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = l.Mutate(ctx, "ten_1", func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
		if _, err := touch(tx, current); err != nil {
			return Unchanged, err
		}
		return Changed, boom
	})
	assert.ErrorIs(t, err, boom)

	var tp models.TenantPlan
	require.NoError(t, db.First(&tp, "tenant_id = ?", "ten_1").Error)
	assert.Equal(t, 1, tp.Version)
	assert.Nil(t, tp.PricingRef)
}

func TestLedger_ChangedWithoutRowIsNotFound(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))
	_, err := l.Mutate(context.Background(), "ten_1", func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
		return Changed, nil
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLedger_CreateOverExistingIsConflict(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))
	ctx := context.Background()
	_, err := l.Mutate(ctx, "ten_1", create("ten_1"))
	require.NoError(t, err)

	_, err = l.Mutate(ctx, "ten_1", func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
		return Created, nil
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestLedger_DuplicateCreateIsRetried(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))
	ctx := context.Background()

	// The first attempt loses the insert race.
	calls := 0
	res, err := l.Mutate(ctx, "ten_1", func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
		calls++
		if calls == 1 {
			return Unchanged, gorm.ErrDuplicatedKey
		}
		return create("ten_1")(tx, current)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, Created, res.Outcome)
	assert.Equal(t, 1, res.Assignment.Version)
}

func TestLedger_DuplicateCreateRetriedOnlyOnce(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))

	calls := 0
	_, err := l.Mutate(context.Background(), "ten_1", func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error) {
		calls++
		return Unchanged, gorm.ErrDuplicatedKey
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, 2, calls)
}

func TestLedger_AfterFuncSeesBumpedRow(t *testing.T) {
	l := New(testhelpers.NewTestDB(t))
	ctx := context.Background()
	_, err := l.Mutate(ctx, "ten_1", create("ten_1"))
	require.NoError(t, err)

	seen := 0
	_, err = l.Mutate(ctx, "ten_1", touch, func(tx *gorm.DB, current *models.TenantPlan) error {
		seen = current.Version
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "changed", Changed.String())
	assert.Equal(t, "created", Created.String())
}
