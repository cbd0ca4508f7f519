package repository

import (
	"context"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *models.Plan) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(plan).Error, "plan "+plan.Code)
}

func (r *planRepository) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&plan).Error; err != nil {
		return nil, apperrors.FromDB(err, "plan "+code)
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.WithContext(ctx).Order("code ASC").Find(&plans).Error
	return plans, err
}

// Update saves every column of an existing plan
func (r *planRepository) Update(ctx context.Context, plan *models.Plan) error {
	res := r.db.WithContext(ctx).Model(plan).
		Select("name", "limits", "features", "overage_policy", "pricing_ref", "updated_at").
		Updates(plan)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports unchanged rows as unaffected
		_, err := r.GetByCode(ctx, plan.Code)
		return err
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Plan{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("plan %s not found", code)
	}
	return nil
}
