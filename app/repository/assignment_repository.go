package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// assignmentRepository implements the AssignmentRepository interface
type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository instance
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// WithTx returns a copy bound to tx. Use it inside ledger mutations so every
// read and write joins the locking transaction.
func (r *assignmentRepository) WithTx(tx *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: tx}
}

func (r *assignmentRepository) GetTenantPlan(ctx context.Context, tenantID string) (*models.TenantPlan, error) {
	var tp models.TenantPlan
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&tp).Error; err != nil {
		return nil, apperrors.FromDB(err, "tenant plan for "+tenantID)
	}
	return &tp, nil
}

func (r *assignmentRepository) CreateTenantPlan(ctx context.Context, tp *models.TenantPlan) error {
	if tp.Version == 0 {
		tp.Version = 1
	}
	return r.db.WithContext(ctx).Create(tp).Error
}

// UpdateTenantPlan writes the given columns. The version column is owned by
// the ledger and must not be passed here.
func (r *assignmentRepository) UpdateTenantPlan(ctx context.Context, tenantID string, fields map[string]any) error {
	if _, ok := fields["version"]; ok {
		return errors.New("repository: version is managed by the ledger")
	}
	return r.db.WithContext(ctx).Model(&models.TenantPlan{}).Where("tenant_id = ?", tenantID).Updates(fields).Error
}

func (r *assignmentRepository) TenantPlansByPlan(ctx context.Context, planCode string) ([]models.TenantPlan, error) {
	var tps []models.TenantPlan
	err := r.db.WithContext(ctx).Where("plan_code = ?", planCode).Find(&tps).Error
	return tps, err
}

func (r *assignmentRepository) TenantPlansByAddon(ctx context.Context, addonCode string) ([]models.TenantPlan, error) {
	var tps []models.TenantPlan
	err := r.db.WithContext(ctx).
		Where("tenant_id IN (?)", r.db.Model(&models.TenantAddon{}).Select("tenant_id").Where("addon_code = ?", addonCode)).
		Find(&tps).Error
	return tps, err
}

func (r *assignmentRepository) ListAddons(ctx context.Context, tenantID string) ([]models.TenantAddon, error) {
	var addons []models.TenantAddon
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("addon_code ASC").Find(&addons).Error
	return addons, err
}

func (r *assignmentRepository) SaveAddon(ctx context.Context, ta *models.TenantAddon) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Save(ta).Error, "addon assignment "+ta.AddonCode)
}

func (r *assignmentRepository) DeleteAddon(ctx context.Context, tenantID, addonCode string) (bool, error) {
	res := r.db.WithContext(ctx).Where("tenant_id = ? AND addon_code = ?", tenantID, addonCode).Delete(&models.TenantAddon{})
	return res.RowsAffected > 0, res.Error
}

func (r *assignmentRepository) CountAddonAssignments(ctx context.Context, addonCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TenantAddon{}).Where("addon_code = ?", addonCode).Count(&count).Error
	return count, err
}

func (r *assignmentRepository) ListOverrides(ctx context.Context, tenantID string) ([]models.TenantOverride, error) {
	var overrides []models.TenantOverride
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("override_key ASC").Find(&overrides).Error
	return overrides, err
}

func (r *assignmentRepository) SaveOverride(ctx context.Context, o *models.TenantOverride) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Save(o).Error, "override "+o.Key)
}

func (r *assignmentRepository) DeleteOverride(ctx context.Context, tenantID, key string) (bool, error) {
	res := r.db.WithContext(ctx).Where("tenant_id = ? AND override_key = ?", tenantID, key).Delete(&models.TenantOverride{})
	return res.RowsAffected > 0, res.Error
}

func (r *assignmentRepository) GetOverageRefs(ctx context.Context, tenantID string) (*models.OveragePriceRefs, error) {
	var refs models.OveragePriceRefs
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&refs).Error; err != nil {
		return nil, apperrors.FromDB(err, "overage pricing refs for "+tenantID)
	}
	return &refs, nil
}

func (r *assignmentRepository) SaveOverageRefs(ctx context.Context, refs *models.OveragePriceRefs) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"per_stylist_ref",
			"per_location_ref",
			"updated_at",
		}),
	}).Create(refs).Error
}

// EnsureOverageRefs returns the tenant's overage refs, inserting the
// baseline record first if none exists. Concurrent callers may both try the
// insert; the loser's insert is ignored and it reads the winner's row.
func (r *assignmentRepository) EnsureOverageRefs(ctx context.Context, tenantID string) (*models.OveragePriceRefs, error) {
	refs, err := r.GetOverageRefs(ctx, tenantID)
	if err == nil {
		return refs, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	baseline := models.NewBaselineOverageRefs(tenantID)
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(baseline).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}
	return r.GetOverageRefs(ctx, tenantID)
}

// LoadAggregate reads the tenant's assignment, its plan, its addons with
// their catalog rows, its overrides and its overage refs in one read
// transaction, so the result reflects a single committed state.
func (r *assignmentRepository) LoadAggregate(ctx context.Context, tenantID string) (*Aggregate, error) {
	agg := &Aggregate{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).First(&agg.Assignment).Error; err != nil {
			return apperrors.FromDB(err, "tenant plan for "+tenantID)
		}
		if err := tx.Where("code = ?", agg.Assignment.PlanCode).First(&agg.Plan).Error; err != nil {
			return apperrors.FromDB(err, "plan "+agg.Assignment.PlanCode)
		}

		var assigned []models.TenantAddon
		if err := tx.Where("tenant_id = ?", tenantID).Order("addon_code ASC").Find(&assigned).Error; err != nil {
			return err
		}
		if len(assigned) > 0 {
			codes := make([]string, 0, len(assigned))
			for _, ta := range assigned {
				codes = append(codes, ta.AddonCode)
			}
			var catalog []models.Addon
			if err := tx.Where("code IN ?", codes).Find(&catalog).Error; err != nil {
				return err
			}
			byCode := make(map[string]*models.Addon, len(catalog))
			for i := range catalog {
				byCode[catalog[i].Code] = &catalog[i]
			}
			for _, ta := range assigned {
				agg.Addons = append(agg.Addons, AddonAssignment{Assignment: ta, Addon: byCode[ta.AddonCode]})
			}
		}

		if err := tx.Where("tenant_id = ?", tenantID).Order("override_key ASC").Find(&agg.Overrides).Error; err != nil {
			return err
		}

		var refs models.OveragePriceRefs
		err := tx.Where("tenant_id = ?", tenantID).First(&refs).Error
		switch {
		case err == nil:
			agg.OverageRefs = &refs
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}
