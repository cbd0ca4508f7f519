package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/RulesService/internal/pkg/middleware"
)

type ApiRouter struct {
	h *Handlers
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	h := r.h
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        limiterMax,
		Expiration: limiterExpiration,
		Storage:    h.LimiterStorage,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from rules api",
		})
	})

	v1 := api.Group("/v1")

	internal := middleware.RequireInternalService(h.Config.InternalServiceHeader)
	v1.Get("/entitlements/:tenant_id", internal, h.Entitlements.HandleGet)

	tenants := v1.Group("/tenants", internal)
	tenants.Post("/", h.Tenants.HandleCreate)
	tenants.Get("/", h.Tenants.HandleList)
	tenants.Get("/:id", h.Tenants.HandleGet)
	tenants.Get("/:id/assignments", h.Assignments.HandleGet)
	tenants.Put("/:id/plan", h.Assignments.HandlePutPlan)
	tenants.Put("/:id/addons", h.Assignments.HandlePutAddons)
	tenants.Put("/:id/overrides", h.Assignments.HandlePutOverrides)
	tenants.Get("/:id/overage-pricing-refs", h.Assignments.HandleGetOverageRefs)
	tenants.Put("/:id/overage-pricing-refs", h.Assignments.HandlePutOverageRefs)
	tenants.Get("/:id/price-preview", h.Assignments.HandlePricePreview)

	admin := v1.Group("/admin", middleware.RequireAdmin(h.Config.AdminRoleHeader))
	admin.Get("/plans", h.Catalog.HandleListPlans)
	admin.Post("/plans", h.Catalog.HandleCreatePlan)
	admin.Get("/plans/:code", h.Catalog.HandleGetPlan)
	admin.Put("/plans/:code", h.Catalog.HandleUpdatePlan)
	admin.Delete("/plans/:code", h.Catalog.HandleDeletePlan)
	admin.Get("/addons", h.Catalog.HandleListAddons)
	admin.Post("/addons", h.Catalog.HandleCreateAddon)
	admin.Get("/addons/:code", h.Catalog.HandleGetAddon)
	admin.Put("/addons/:code", h.Catalog.HandleUpdateAddon)
	admin.Delete("/addons/:code", h.Catalog.HandleDeleteAddon)
}

func NewApiRouter(h *Handlers) *ApiRouter {
	return &ApiRouter{h: h}
}
