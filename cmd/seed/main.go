package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/catalog"
	"github.com/ManuelReschke/RulesService/internal/pkg/config"
	"github.com/ManuelReschke/RulesService/internal/pkg/database"
	"github.com/ManuelReschke/RulesService/internal/pkg/env"
	"github.com/ManuelReschke/RulesService/internal/pkg/snapshotcache"
)

const seedTimeout = time.Minute

// Seeds the default plan and addon catalog. Existing definitions are
// replaced and the cached snapshots of affected tenants are dropped.
func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("seeding catalog failed: %v", err)
	}
}

func run(cfg *config.Config) error {
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Errorf("closing database: %v", err)
		}
	}()

	var store cache.Store
	if cfg.UsesRedis() {
		store = cache.NewRedisStore(cache.NewRedisClient(cfg))
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	svc := catalog.NewService(repository.NewRepositories(db), snapshotcache.NewLayer(store, cfg.CacheTTL))
	res, err := svc.Seed(ctx, catalog.DefaultPlans(), catalog.DefaultAddons())
	if err != nil {
		return err
	}
	log.Infof("catalog ready: %d created, %d updated", res.Created, res.Updated)
	return nil
}
