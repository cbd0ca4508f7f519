package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/RulesService/internal/pkg/env"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds everything the service reads from the environment.
type Config struct {
	AppHost string `validate:"required"`
	AppPort string `validate:"required,numeric"`
	AppEnv  string `validate:"oneof=dev test prod"`

	DBDriver   string `validate:"oneof=mysql sqlite"`
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string `validate:"omitempty,numeric"`
	DBName     string `validate:"required_if=DBDriver mysql"`
	DBPath     string `validate:"required_if=DBDriver sqlite"`

	// CacheHost empty selects the in-process cache store.
	CacheHost     string
	CachePort     string `validate:"omitempty,numeric"`
	CachePassword string
	CacheDB       int `validate:"gte=0,lte=15"`

	CacheTTL             time.Duration `validate:"gt=0"`
	IdempotencyTTL       time.Duration `validate:"gt=0"`
	IdempotencyConflicts string        `validate:"oneof=reexecute reject"`

	PricingBaseURL string `validate:"omitempty,url"`
	PricingTimeout time.Duration

	AdminRoleHeader       string `validate:"required"`
	InternalServiceHeader string `validate:"required"`

	EventsChannel string `validate:"required"`
}

// Load builds the Config from env (call env.SetupEnvFile first).
func Load() (*Config, error) {
	cfg := &Config{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "4000"),
		AppEnv:  env.GetEnv("APP_ENV", "prod"),

		DBDriver:   env.GetEnv("DB_DRIVER", DriverMySQL),
		DBUser:     env.GetEnv("DB_USER", ""),
		DBPassword: env.GetEnv("DB_PASSWORD", ""),
		DBHost:     env.GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:     env.GetEnv("DB_PORT", "3306"),
		DBName:     env.GetEnv("DB_NAME", ""),
		DBPath:     env.GetEnv("DB_PATH", ""),

		CacheHost:     env.GetEnv("CACHE_HOST", ""),
		CachePort:     env.GetEnv("CACHE_PORT", "6379"),
		CachePassword: env.GetEnv("CACHE_PASSWORD", ""),
		CacheDB:       env.GetInt("CACHE_DB", 0),

		CacheTTL:             env.GetDuration("CACHE_TTL_SECONDS", 900, time.Second),
		IdempotencyTTL:       env.GetDuration("IDEMPOTENCY_TTL_HOURS", 24, time.Hour),
		IdempotencyConflicts: env.GetEnv("IDEMPOTENCY_CONFLICT_MODE", "reexecute"),

		PricingBaseURL: env.GetEnv("PRICING_BASE_URL", ""),
		PricingTimeout: env.GetDuration("PRICING_TIMEOUT_MS", 2000, time.Millisecond),

		AdminRoleHeader:       env.GetEnv("ADMIN_ROLE_HEADER", "X-Internal-Role"),
		InternalServiceHeader: env.GetEnv("INTERNAL_SERVICE_HEADER", "X-Internal-Service"),

		EventsChannel: env.GetEnv("EVENTS_CHANNEL", "rules.events"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ListenAddr returns host:port for fiber.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// UsesRedis reports whether a Redis cache endpoint is configured.
func (c *Config) UsesRedis() bool {
	return c.CacheHost != ""
}
