package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers the health check first so it stays outside the
// rate-limited /api group.
func InstallRouter(app *fiber.App, h *Handlers) {
	setup(app, NewHealthRouter(h), NewApiRouter(h))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
