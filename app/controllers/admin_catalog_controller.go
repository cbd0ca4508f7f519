package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/RulesService/internal/pkg/catalog"
)

// AdminCatalogController manages plan and addon definitions.
type AdminCatalogController struct {
	catalog *catalog.Service
}

func NewAdminCatalogController(catalog *catalog.Service) *AdminCatalogController {
	return &AdminCatalogController{catalog: catalog}
}

// Plans

func (ac *AdminCatalogController) HandleListPlans(c *fiber.Ctx) error {
	plans, err := ac.catalog.ListPlans(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

func (ac *AdminCatalogController) HandleGetPlan(c *fiber.Ctx) error {
	plan, err := ac.catalog.GetPlan(c.UserContext(), c.Params("code"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(plan)
}

func (ac *AdminCatalogController) HandleCreatePlan(c *fiber.Ctx) error {
	var in catalog.PlanInput
	if err := bindJSON(c, &in); err != nil {
		return errorResponse(c, err)
	}
	plan, err := ac.catalog.CreatePlan(c.UserContext(), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func (ac *AdminCatalogController) HandleUpdatePlan(c *fiber.Ctx) error {
	var in catalog.PlanInput
	if err := bindJSON(c, &in); err != nil {
		return errorResponse(c, err)
	}
	plan, err := ac.catalog.UpdatePlan(c.UserContext(), c.Params("code"), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(plan)
}

func (ac *AdminCatalogController) HandleDeletePlan(c *fiber.Ctx) error {
	if err := ac.catalog.DeletePlan(c.UserContext(), c.Params("code")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Addons

func (ac *AdminCatalogController) HandleListAddons(c *fiber.Ctx) error {
	addons, err := ac.catalog.ListAddons(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"addons": addons})
}

func (ac *AdminCatalogController) HandleGetAddon(c *fiber.Ctx) error {
	addon, err := ac.catalog.GetAddon(c.UserContext(), c.Params("code"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(addon)
}

func (ac *AdminCatalogController) HandleCreateAddon(c *fiber.Ctx) error {
	var in catalog.AddonInput
	if err := bindJSON(c, &in); err != nil {
		return errorResponse(c, err)
	}
	addon, err := ac.catalog.CreateAddon(c.UserContext(), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(addon)
}

func (ac *AdminCatalogController) HandleUpdateAddon(c *fiber.Ctx) error {
	var in catalog.AddonInput
	if err := bindJSON(c, &in); err != nil {
		return errorResponse(c, err)
	}
	addon, err := ac.catalog.UpdateAddon(c.UserContext(), c.Params("code"), in)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(addon)
}

func (ac *AdminCatalogController) HandleDeleteAddon(c *fiber.Ctx) error {
	if err := ac.catalog.DeleteAddon(c.UserContext(), c.Params("code")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
