package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/idempotency"
	"github.com/ManuelReschke/RulesService/internal/pkg/tenants"
)

type TenantController struct {
	tenants *tenants.Service
	guard   *idempotency.Guard
}

func NewTenantController(tenants *tenants.Service, guard *idempotency.Guard) *TenantController {
	return &TenantController{tenants: tenants, guard: guard}
}

// HandleCreate creates a tenant. The request must carry an Idempotency-Key;
// a retry with the same key and body gets the original 201 response.
func (tc *TenantController) HandleCreate(c *fiber.Ctx) error {
	if idempotencyKey(c) == "" {
		return errorResponse(c, apperrors.Invalid(HeaderIdempotencyKey, "header is required"))
	}
	var in tenants.CreateInput
	if err := bindJSON(c, &in); err != nil {
		return errorResponse(c, err)
	}
	return mutate(c, tc.guard, in, func() (int, any, error) {
		created, err := tc.tenants.Create(c.UserContext(), in)
		return fiber.StatusCreated, created, err
	})
}

func (tc *TenantController) HandleGet(c *fiber.Ctx) error {
	tenant, err := tc.tenants.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(tenant)
}

// HandleList pages through tenants with ?offset=&limit=.
func (tc *TenantController) HandleList(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	list, err := tc.tenants.List(c.UserContext(), offset, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"tenants": list, "offset": offset, "limit": limit})
}
