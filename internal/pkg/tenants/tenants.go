// Package tenants manages tenant records.
package tenants

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/events"
	"github.com/ManuelReschke/RulesService/internal/pkg/slug"
)

var validate = validator.New()

// CreateInput is the body of a tenant create request.
type CreateInput struct {
	Name  string         `json:"name" validate:"required,max=255"`
	Slug  string         `json:"slug,omitempty" validate:"omitempty,max=50"`
	Theme map[string]any `json:"theme,omitempty"`
}

func (in *CreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	return apperrors.FromValidator(validate.Struct(in))
}

// Created is the response body of a tenant create.
type Created struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

type Service struct {
	repo      repository.TenantRepository
	publisher events.Publisher
}

func NewService(repo repository.TenantRepository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &Service{repo: repo, publisher: publisher}
}

// Create stores a new tenant with a ULID id. Without an explicit slug one
// is derived from the name and made unique with a numeric suffix.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Created, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tenantSlug := in.Slug
	if tenantSlug != "" {
		if err := slug.Validate(tenantSlug); err != nil {
			return nil, apperrors.Invalid("slug", "%v", err)
		}
		taken, err := s.repo.SlugExists(ctx, tenantSlug)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Conflict("slug %s is already in use", tenantSlug)
		}
	} else {
		var err error
		tenantSlug, err = slug.Unique(ctx, slug.Make(in.Name), s.repo.SlugExists)
		if err != nil {
			return nil, err
		}
	}

	tenant := &models.Tenant{
		ID:     ulid.Make().String(),
		Slug:   tenantSlug,
		Name:   in.Name,
		Status: models.TenantStatusActive,
		Theme:  datatypes.JSONMap(in.Theme),
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	log.Infof("created tenant %s (%s)", tenant.ID, tenant.Slug)
	s.publisher.Publish(ctx, events.TenantCreated(tenant.ID, tenant.Slug, tenant.Name))
	return &Created{TenantID: tenant.ID, Name: tenant.Name, Slug: tenant.Slug}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]models.Tenant, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}
