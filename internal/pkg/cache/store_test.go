package cache

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/RulesService/internal/pkg/config"
)

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func newMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStores_GetSetDelete(t *testing.T) {
	_, rs := newRedisStore(t)
	stores := map[string]Store{
		"redis":  rs,
		"memory": newMemoryStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrMiss)

			require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
			require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
			got, err := store.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), got)

			require.NoError(t, store.Delete(ctx, "a", "b", "never-set"))
			_, err = store.Get(ctx, "a")
			assert.ErrorIs(t, err, ErrMiss)
			_, err = store.Get(ctx, "b")
			assert.ErrorIs(t, err, ErrMiss)

			require.NoError(t, store.Delete(ctx))
			assert.NoError(t, store.Ping(ctx))
		})
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	mr, store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_Outage(t *testing.T) {
	mr, store := newRedisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Error(t, store.Ping(context.Background()))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestNewRedisClient_UsesConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client := NewRedisClient(&config.Config{CacheHost: host, CachePort: port, CacheDB: 2})
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.Select(2)
	assert.True(t, mr.Exists("k"))
}
