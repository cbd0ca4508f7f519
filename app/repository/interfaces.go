package repository

import (
	"context"

	"github.com/ManuelReschke/RulesService/app/models"
	"gorm.io/gorm"
)

// PlanRepository defines the catalog operations for plans
type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByCode(ctx context.Context, code string) (*models.Plan, error)
	List(ctx context.Context) ([]models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, code string) error
}

// AddonRepository defines the catalog operations for addons
type AddonRepository interface {
	Create(ctx context.Context, addon *models.Addon) error
	GetByCode(ctx context.Context, code string) (*models.Addon, error)
	GetByCodes(ctx context.Context, codes []string) ([]models.Addon, error)
	List(ctx context.Context) ([]models.Addon, error)
	Update(ctx context.Context, addon *models.Addon) error
	Delete(ctx context.Context, code string) error
}

// AssignmentRepository defines the per-tenant configuration aggregate:
// plan assignment, addon assignments, overrides and overage refs.
type AssignmentRepository interface {
	WithTx(tx *gorm.DB) AssignmentRepository

	GetTenantPlan(ctx context.Context, tenantID string) (*models.TenantPlan, error)
	CreateTenantPlan(ctx context.Context, tp *models.TenantPlan) error
	UpdateTenantPlan(ctx context.Context, tenantID string, fields map[string]any) error
	TenantPlansByPlan(ctx context.Context, planCode string) ([]models.TenantPlan, error)
	TenantPlansByAddon(ctx context.Context, addonCode string) ([]models.TenantPlan, error)

	ListAddons(ctx context.Context, tenantID string) ([]models.TenantAddon, error)
	SaveAddon(ctx context.Context, ta *models.TenantAddon) error
	DeleteAddon(ctx context.Context, tenantID, addonCode string) (bool, error)
	CountAddonAssignments(ctx context.Context, addonCode string) (int64, error)

	ListOverrides(ctx context.Context, tenantID string) ([]models.TenantOverride, error)
	SaveOverride(ctx context.Context, o *models.TenantOverride) error
	DeleteOverride(ctx context.Context, tenantID, key string) (bool, error)

	GetOverageRefs(ctx context.Context, tenantID string) (*models.OveragePriceRefs, error)
	SaveOverageRefs(ctx context.Context, refs *models.OveragePriceRefs) error
	EnsureOverageRefs(ctx context.Context, tenantID string) (*models.OveragePriceRefs, error)

	LoadAggregate(ctx context.Context, tenantID string) (*Aggregate, error)
}

// TenantRepository defines the operations on tenant records
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]models.Tenant, error)
}

// AddonAssignment pairs a tenant's addon row with its catalog definition.
// Addon is nil when the catalog row has disappeared.
type AddonAssignment struct {
	Assignment models.TenantAddon
	Addon      *models.Addon
}

// Aggregate is everything the merge engine needs for one tenant, read in a
// single transaction.
type Aggregate struct {
	Assignment  models.TenantPlan
	Plan        models.Plan
	Addons      []AddonAssignment
	Overrides   []models.TenantOverride
	OverageRefs *models.OveragePriceRefs
}

// Repositories struct holds all repository instances
type Repositories struct {
	Plan       PlanRepository
	Addon      AddonRepository
	Assignment AssignmentRepository
	Tenant     TenantRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Plan:       NewPlanRepository(db),
		Addon:      NewAddonRepository(db),
		Assignment: NewAssignmentRepository(db),
		Tenant:     NewTenantRepository(db),
	}
}
