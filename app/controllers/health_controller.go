package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/database"
	"github.com/ManuelReschke/RulesService/internal/pkg/metrics/counter"
)

const healthTimeout = 2 * time.Second

// HealthController reports database and cache reachability along with the
// snapshot read counters.
type HealthController struct {
	db    *gorm.DB
	store cache.Store
	stats *counter.Set
}

func NewHealthController(db *gorm.DB, store cache.Store, stats *counter.Set) *HealthController {
	return &HealthController{db: db, store: store, stats: stats}
}

// HandleHealth answers 200 "ok", 200 "degraded" when only the cache is
// down, or 503 "down" when the database is unreachable.
func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	checks := fiber.Map{"database": "ok", "cache": "ok"}
	status := "ok"

	if err := hc.store.Ping(ctx); err != nil {
		log.Warnf("health: cache ping failed: %v", err)
		checks["cache"] = "unreachable"
		status = "degraded"
	}
	if err := database.Ping(ctx, hc.db); err != nil {
		log.Errorf("health: database ping failed: %v", err)
		checks["database"] = "unreachable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "checks": checks})
	}
	body := fiber.Map{"status": status, "checks": checks}
	if stats, err := hc.stats.Values(ctx); err != nil {
		log.Warnf("health: collecting counters failed: %v", err)
	} else {
		body["stats"] = stats
	}
	return c.JSON(body)
}
