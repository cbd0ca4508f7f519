package repository

import (
	"context"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// tenantRepository implements the TenantRepository interface
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	return apperrors.FromDB(r.db.WithContext(ctx).Create(tenant).Error, "tenant "+tenant.Slug)
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, apperrors.FromDB(err, "tenant "+id)
	}
	return &tenant, nil
}

func (r *tenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *tenantRepository) List(ctx context.Context, offset, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&tenants).Error
	return tenants, err
}
