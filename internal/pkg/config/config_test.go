package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/RulesService/internal/pkg/env"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := env.Env
	env.Env = values
	t.Cleanup(func() { env.Env = prev })
}

func TestLoad_Defaults(t *testing.T) {
	withEnv(t, map[string]string{"DB_NAME": "rules"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "reexecute", cfg.IdempotencyConflicts)
	assert.Equal(t, 2*time.Second, cfg.PricingTimeout)
	assert.Equal(t, "X-Internal-Role", cfg.AdminRoleHeader)
	assert.Equal(t, "localhost:4000", cfg.ListenAddr())
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_Overrides(t *testing.T) {
	withEnv(t, map[string]string{
		"DB_DRIVER":         DriverSQLite,
		"DB_PATH":           "/tmp/rules.db",
		"CACHE_HOST":        "redis",
		"CACHE_DB":          "3",
		"CACHE_TTL_SECONDS": "60",
		"PRICING_BASE_URL":  "http://pricing:8080",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.CacheDB)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"mysql without name":  {},
		"sqlite without path": {"DB_DRIVER": DriverSQLite},
		"unknown driver":      {"DB_DRIVER": "postgres", "DB_NAME": "x"},
		"bad conflict mode":   {"DB_NAME": "x", "IDEMPOTENCY_CONFLICT_MODE": "ignore"},
		"cache db range":      {"DB_NAME": "x", "CACHE_DB": "16"},
		"zero ttl":            {"DB_NAME": "x", "CACHE_TTL_SECONDS": "0"},
		"bad pricing url":     {"DB_NAME": "x", "PRICING_BASE_URL": "not a url"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			withEnv(t, values)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
