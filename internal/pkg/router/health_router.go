package router

import (
	"github.com/gofiber/fiber/v2"
)

type HealthRouter struct {
	h *Handlers
}

func (r HealthRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", r.h.Health.HandleHealth)
}

func NewHealthRouter(h *Handlers) *HealthRouter {
	return &HealthRouter{h: h}
}
