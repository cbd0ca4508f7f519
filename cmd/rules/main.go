package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/ManuelReschke/RulesService/app/controllers"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/catalog"
	"github.com/ManuelReschke/RulesService/internal/pkg/config"
	"github.com/ManuelReschke/RulesService/internal/pkg/database"
	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
	"github.com/ManuelReschke/RulesService/internal/pkg/env"
	"github.com/ManuelReschke/RulesService/internal/pkg/events"
	"github.com/ManuelReschke/RulesService/internal/pkg/idempotency"
	"github.com/ManuelReschke/RulesService/internal/pkg/ledger"
	"github.com/ManuelReschke/RulesService/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/RulesService/internal/pkg/pricing"
	"github.com/ManuelReschke/RulesService/internal/pkg/router"
	"github.com/ManuelReschke/RulesService/internal/pkg/rules"
	"github.com/ManuelReschke/RulesService/internal/pkg/snapshotcache"
	"github.com/ManuelReschke/RulesService/internal/pkg/tenants"
)

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}

	store, publisher := openCache(cfg)

	stats, err := counter.New()
	if err != nil {
		log.Fatal(err)
	}
	otel.SetMeterProvider(stats.Provider())

	limiterStorage := router.NewLimiterStorage(cfg)
	app := NewApplication(cfg, db, store, publisher, stats, limiterStorage)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorf("fiber shutdown: %v", err)
		}
	}()

	if err := app.Listen(cfg.ListenAddr()); err != nil {
		log.Errorf("listen: %v", err)
	}

	if limiterStorage != nil {
		if err := limiterStorage.Close(); err != nil {
			log.Errorf("closing limiter storage: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Errorf("closing cache store: %v", err)
	}
	if err := stats.Shutdown(context.Background()); err != nil {
		log.Errorf("stopping meter provider: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Errorf("closing database: %v", err)
	}
}

// openCache returns the Redis-backed store and event publisher when a cache
// host is configured, otherwise the in-process store and log publisher.
func openCache(cfg *config.Config) (cache.Store, events.Publisher) {
	if !cfg.UsesRedis() {
		log.Info("no cache host configured, using in-process cache")
		return cache.NewMemoryStore(), events.LogPublisher{}
	}
	client := cache.NewRedisClient(cfg)
	return cache.NewRedisStore(client), events.NewRedisPublisher(client, cfg.EventsChannel)
}

// NewApplication wires services and controllers onto a new fiber app.
// limiterStorage may be nil to keep rate-limit state in memory.
func NewApplication(cfg *config.Config, db *gorm.DB, store cache.Store, publisher events.Publisher, stats *counter.Set, limiterStorage fiber.Storage) *fiber.App {
	factory := repository.NewFactory(db)
	repos := factory.GetRepositories()
	l := ledger.New(db)
	layer := snapshotcache.NewLayer(store, cfg.CacheTTL)
	engine := entitlements.NewEngine(repos.Assignment, cfg.CacheTTL)
	reader := snapshotcache.NewReader(layer, l, engine, stats)
	guard := idempotency.NewGuard(store, cfg.IdempotencyTTL, cfg.IdempotencyConflicts)
	prices := pricing.NewClient(cfg.PricingBaseURL, cfg.PricingTimeout)

	rulesService := rules.NewService(repos, l, layer, reader, publisher, prices)
	catalogService := catalog.NewService(repos, layer)
	tenantService := tenants.NewService(factory.GetTenantRepository(), publisher)

	app := fiber.New(fiber.Config{
		AppName:   "rules-service",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app, &router.Handlers{
		Config:         cfg,
		LimiterStorage: limiterStorage,
		Entitlements:   controllers.NewEntitlementController(rulesService),
		Assignments:    controllers.NewAssignmentController(rulesService, guard),
		Tenants:        controllers.NewTenantController(tenantService, guard),
		Catalog:        controllers.NewAdminCatalogController(catalogService),
		Health:         controllers.NewHealthController(db, store, stats),
	})

	return app
}
