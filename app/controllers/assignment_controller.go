package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/idempotency"
	"github.com/ManuelReschke/RulesService/internal/pkg/pricing"
	"github.com/ManuelReschke/RulesService/internal/pkg/rules"
)

// AssignmentController handles the per-tenant configuration endpoints.
type AssignmentController struct {
	rules *rules.Service
	guard *idempotency.Guard
}

func NewAssignmentController(rules *rules.Service, guard *idempotency.Guard) *AssignmentController {
	return &AssignmentController{rules: rules, guard: guard}
}

func (ac *AssignmentController) HandleGet(c *fiber.Ctx) error {
	view, err := ac.rules.Assignments(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (ac *AssignmentController) HandlePutPlan(c *fiber.Ctx) error {
	var req rules.PlanAssignment
	if err := bindJSON(c, &req); err != nil {
		return errorResponse(c, err)
	}
	tenantID := c.Params("id")
	return mutate(c, ac.guard, req, func() (int, any, error) {
		view, err := ac.rules.AssignPlan(c.UserContext(), tenantID, req)
		return fiber.StatusOK, view, err
	})
}

func (ac *AssignmentController) HandlePutAddons(c *fiber.Ctx) error {
	var req rules.AddonChanges
	if err := bindJSON(c, &req); err != nil {
		return errorResponse(c, err)
	}
	tenantID := c.Params("id")
	return mutate(c, ac.guard, req, func() (int, any, error) {
		view, err := ac.rules.UpdateAddons(c.UserContext(), tenantID, req)
		return fiber.StatusOK, view, err
	})
}

func (ac *AssignmentController) HandlePutOverrides(c *fiber.Ctx) error {
	var req rules.OverrideChanges
	if err := bindJSON(c, &req); err != nil {
		return errorResponse(c, err)
	}
	tenantID := c.Params("id")
	return mutate(c, ac.guard, req, func() (int, any, error) {
		view, err := ac.rules.UpdateOverrides(c.UserContext(), tenantID, req)
		return fiber.StatusOK, view, err
	})
}

func (ac *AssignmentController) HandleGetOverageRefs(c *fiber.Ctx) error {
	view, err := ac.rules.OverageRefs(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (ac *AssignmentController) HandlePutOverageRefs(c *fiber.Ctx) error {
	var req rules.OverageRefsUpdate
	if err := bindJSON(c, &req); err != nil {
		return errorResponse(c, err)
	}
	tenantID := c.Params("id")
	return mutate(c, ac.guard, req, func() (int, any, error) {
		view, err := ac.rules.UpdateOverageRefs(c.UserContext(), tenantID, req)
		return fiber.StatusOK, view, err
	})
}

// HandlePricePreview prices the current snapshot for ?stylists=&locations=.
func (ac *AssignmentController) HandlePricePreview(c *fiber.Ctx) error {
	var usage pricing.Usage
	var err error
	if usage.Stylists, err = queryInt(c, "stylists"); err != nil {
		return errorResponse(c, err)
	}
	if usage.Locations, err = queryInt(c, "locations"); err != nil {
		return errorResponse(c, err)
	}

	preview, err := ac.rules.PricePreview(c.UserContext(), c.Params("id"), usage)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(preview)
}

func queryInt(c *fiber.Ctx, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Invalid(name, "must be an integer")
	}
	return &v, nil
}
