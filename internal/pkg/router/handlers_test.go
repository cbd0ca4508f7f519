package router

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/RulesService/internal/pkg/config"
)

func TestNewLimiterStorage_InMemoryWithoutCacheHost(t *testing.T) {
	assert.Nil(t, NewLimiterStorage(&config.Config{}))
}

func TestNewLimiterStorage_RedisUsesSeparateDatabase(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{CacheHost: mr.Host(), CachePort: mr.Port(), CacheDB: 2}

	storage := NewLimiterStorage(cfg)
	require.NotNil(t, storage)

	require.NoError(t, storage.Set("limiter:127.0.0.1", []byte("1"), time.Minute))
	mr.Select(3)
	assert.True(t, mr.Exists("limiter:127.0.0.1"))

	require.NoError(t, storage.Close())
}
