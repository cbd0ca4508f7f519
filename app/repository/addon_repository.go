package repository

import (
	"context"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// addonRepository implements the AddonRepository interface
type addonRepository struct {
	db *gorm.DB
}

// NewAddonRepository creates a new addon repository instance
func NewAddonRepository(db *gorm.DB) AddonRepository {
	return &addonRepository{db: db}
}

func (r *addonRepository) Create(ctx context.Context, addon *models.Addon) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(addon).Error, "addon "+addon.Code)
}

func (r *addonRepository) GetByCode(ctx context.Context, code string) (*models.Addon, error) {
	var addon models.Addon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&addon).Error; err != nil {
		return nil, apperrors.FromDB(err, "addon "+code)
	}
	return &addon, nil
}

// GetByCodes returns the addons whose code is in codes, ordered by code.
// Unknown codes are simply absent from the result.
func (r *addonRepository) GetByCodes(ctx context.Context, codes []string) ([]models.Addon, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var addons []models.Addon
	err := r.db.WithContext(ctx).Where("code IN ?", codes).Order("code ASC").Find(&addons).Error
	return addons, err
}

func (r *addonRepository) List(ctx context.Context) ([]models.Addon, error) {
	var addons []models.Addon
	err := r.db.WithContext(ctx).Order("code ASC").Find(&addons).Error
	return addons, err
}

func (r *addonRepository) Update(ctx context.Context, addon *models.Addon) error {
	res := r.db.WithContext(ctx).Model(addon).
		Select("name", "meta", "effect", "pricing_ref", "updated_at").
		Updates(addon)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports unchanged rows as unaffected
		_, err := r.GetByCode(ctx, addon.Code)
		return err
	}
	return nil
}

func (r *addonRepository) Delete(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Addon{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("addon %s not found", code)
	}
	return nil
}
