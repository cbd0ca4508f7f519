// Package catalog manages plan and addon definitions. Catalog edits never
// change a tenant's version; they drop the cached snapshots of the tenants
// that use the edited definition.
package catalog

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/snapshotcache"
)

var validate = validator.New()

// PlanInput creates or replaces a plan. Code is taken from the URL on update.
type PlanInput struct {
	Code          string           `json:"code" validate:"required,max=64"`
	Name          string           `json:"name" validate:"required,max=255"`
	Limits        map[string]int64 `json:"limits"`
	Features      map[string]bool  `json:"features"`
	OveragePolicy map[string]bool  `json:"overage_policy"`
	PricingRef    *string          `json:"pricing_ref,omitempty" validate:"omitempty,max=191"`
}

func (in *PlanInput) Validate() error {
	in.Code = strings.TrimSpace(in.Code)
	return apperrors.FromValidator(validate.Struct(in))
}

func (in *PlanInput) model() *models.Plan {
	return &models.Plan{
		Code:          in.Code,
		Name:          in.Name,
		Limits:        datatypes.NewJSONType(nonNil(in.Limits)),
		Features:      datatypes.NewJSONType(nonNil(in.Features)),
		OveragePolicy: datatypes.NewJSONType(nonNil(in.OveragePolicy)),
		PricingRef:    in.PricingRef,
	}
}

// AddonInput creates or replaces an addon.
type AddonInput struct {
	Code       string         `json:"code" validate:"required,max=64"`
	Name       string         `json:"name" validate:"required,max=255"`
	Meta       map[string]any `json:"meta"`
	Effect     map[string]any `json:"effect"`
	PricingRef *string        `json:"pricing_ref,omitempty" validate:"omitempty,max=191"`
}

func (in *AddonInput) Validate() error {
	in.Code = strings.TrimSpace(in.Code)
	return apperrors.FromValidator(validate.Struct(in))
}

func (in *AddonInput) model() *models.Addon {
	return &models.Addon{
		Code:       in.Code,
		Name:       in.Name,
		Meta:       datatypes.JSONMap(nonNil(in.Meta)),
		Effect:     datatypes.JSONMap(nonNil(in.Effect)),
		PricingRef: in.PricingRef,
	}
}

// Service is the admin API over plans and addons.
type Service struct {
	plans       repository.PlanRepository
	addons      repository.AddonRepository
	assignments repository.AssignmentRepository
	layer       *snapshotcache.Layer
}

func NewService(repos *repository.Repositories, layer *snapshotcache.Layer) *Service {
	return &Service{
		plans:       repos.Plan,
		addons:      repos.Addon,
		assignments: repos.Assignment,
		layer:       layer,
	}
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*models.Plan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	plan := in.model()
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return s.plans.GetByCode(ctx, plan.Code)
}

func (s *Service) GetPlan(ctx context.Context, code string) (*models.Plan, error) {
	return s.plans.GetByCode(ctx, code)
}

func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return s.plans.List(ctx)
}

// UpdatePlan replaces the plan definition and drops the cached snapshots
// of every tenant on it.
func (s *Service) UpdatePlan(ctx context.Context, code string, in PlanInput) (*models.Plan, error) {
	in.Code = code
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.plans.Update(ctx, in.model()); err != nil {
		return nil, err
	}
	tenants, err := s.assignments.TenantPlansByPlan(ctx, code)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenants)
	log.Infof("plan %s updated, %d cached tenant snapshots dropped", code, len(tenants))
	return s.plans.GetByCode(ctx, code)
}

// DeletePlan removes an unreferenced plan.
func (s *Service) DeletePlan(ctx context.Context, code string) error {
	tenants, err := s.assignments.TenantPlansByPlan(ctx, code)
	if err != nil {
		return err
	}
	if len(tenants) > 0 {
		return apperrors.Conflict("plan %s is assigned to %d tenants", code, len(tenants))
	}
	return s.plans.Delete(ctx, code)
}

func (s *Service) CreateAddon(ctx context.Context, in AddonInput) (*models.Addon, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	addon := in.model()
	if err := s.addons.Create(ctx, addon); err != nil {
		return nil, err
	}
	return s.addons.GetByCode(ctx, addon.Code)
}

func (s *Service) GetAddon(ctx context.Context, code string) (*models.Addon, error) {
	return s.addons.GetByCode(ctx, code)
}

func (s *Service) ListAddons(ctx context.Context) ([]models.Addon, error) {
	return s.addons.List(ctx)
}

// UpdateAddon replaces the addon definition and drops the cached snapshots
// of every tenant that has it assigned.
func (s *Service) UpdateAddon(ctx context.Context, code string, in AddonInput) (*models.Addon, error) {
	in.Code = code
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.addons.Update(ctx, in.model()); err != nil {
		return nil, err
	}
	tenants, err := s.assignments.TenantPlansByAddon(ctx, code)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenants)
	log.Infof("addon %s updated, %d cached tenant snapshots dropped", code, len(tenants))
	return s.addons.GetByCode(ctx, code)
}

// DeleteAddon removes an addon no tenant has assigned.
func (s *Service) DeleteAddon(ctx context.Context, code string) error {
	count, err := s.assignments.CountAddonAssignments(ctx, code)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Conflict("addon %s is assigned to %d tenants", code, count)
	}
	return s.addons.Delete(ctx, code)
}

func (s *Service) invalidate(ctx context.Context, tenants []models.TenantPlan) {
	for _, tp := range tenants {
		s.layer.Invalidate(ctx, tp.TenantID, tp.Version)
	}
}

func nonNil[M ~map[string]V, V any](m M) M {
	if m == nil {
		return M{}
	}
	return m
}
