package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are built once per
// database handle
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// DB returns the handle the repositories were built on
func (f *Factory) DB() *gorm.DB {
	return f.db
}

// GetRepositories returns the shared instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetPlanRepository returns the plan repository instance
func (f *Factory) GetPlanRepository() PlanRepository {
	return f.GetRepositories().Plan
}

// GetAddonRepository returns the addon repository instance
func (f *Factory) GetAddonRepository() AddonRepository {
	return f.GetRepositories().Addon
}

// GetAssignmentRepository returns the assignment repository instance
func (f *Factory) GetAssignmentRepository() AssignmentRepository {
	return f.GetRepositories().Assignment
}

// GetTenantRepository returns the tenant repository instance
func (f *Factory) GetTenantRepository() TenantRepository {
	return f.GetRepositories().Tenant
}
