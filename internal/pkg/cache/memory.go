package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const defaultMemoryCapacity = 100_000

// MemoryStore is an in-process Store for single-instance deployments and
// development without a cache server.
type MemoryStore struct {
	items *ttlcache.Cache[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	items := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, []byte](),
		ttlcache.WithCapacity[string, []byte](defaultMemoryCapacity),
	)
	go items.Start()
	return &MemoryStore{items: items}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	item := s.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, ErrMiss
	}
	value := item.Value()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	s.items.Set(key, stored, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.items.Delete(key)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.items.Stop()
	return nil
}
