package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/RulesService/app/controllers"
	"github.com/ManuelReschke/RulesService/internal/pkg/config"
)

// Handlers bundles what the routers need.
type Handlers struct {
	Config         *config.Config
	LimiterStorage fiber.Storage // nil keeps limiter state in memory

	Entitlements *controllers.EntitlementController
	Assignments  *controllers.AssignmentController
	Tenants      *controllers.TenantController
	Catalog      *controllers.AdminCatalogController
	Health       *controllers.HealthController
}

// Limiter defaults for the /api group.
const (
	limiterMax        = 600
	limiterExpiration = time.Minute
)

// NewLimiterStorage keeps rate-limit counters in Redis, one database above
// the cache, when a cache host is configured. Otherwise it returns nil.
func NewLimiterStorage(cfg *config.Config) fiber.Storage {
	if !cfg.UsesRedis() {
		return nil
	}
	port, err := strconv.Atoi(cfg.CachePort)
	if err != nil {
		port = 6379
	}
	host := cfg.CacheHost
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: cfg.CachePassword,
		Database: (cfg.CacheDB + 1) % 16, // separate database for limiter keys
		Reset:    false,
	})
}
