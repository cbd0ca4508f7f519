// Package snapshotcache keeps merged entitlement snapshots in a cache store,
// keyed by tenant and version.
package snapshotcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
)

// Key returns the cache key of a tenant's snapshot at version. Entries of
// older versions are never looked up again once the version moves on.
func Key(tenantID string, version int) string {
	return fmt.Sprintf("rules:tenant:%s:v%d:blob", tenantID, version)
}

// Layer wraps a cache store for snapshots. Store failures are logged and
// treated as a miss or a no-op.
type Layer struct {
	store cache.Store
	ttl   time.Duration
}

func NewLayer(store cache.Store, ttl time.Duration) *Layer {
	return &Layer{store: store, ttl: ttl}
}

// TTL is the expiry used by Put.
func (l *Layer) TTL() time.Duration {
	return l.ttl
}

// Get returns the cached snapshot of tenantID at version, if any.
func (l *Layer) Get(ctx context.Context, tenantID string, version int) (*entitlements.Snapshot, bool) {
	key := Key(tenantID, version)
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("snapshot cache get %s failed: %v", key, err)
		}
		return nil, false
	}
	snap, err := entitlements.DecodeSnapshot(data)
	if err != nil || snap.TenantID != tenantID || snap.Version != version {
		log.Warnf("dropping unreadable snapshot cache entry %s", key)
		l.delete(ctx, key)
		return nil, false
	}
	return snap, true
}

// Put stores snap under its own tenant and version.
func (l *Layer) Put(ctx context.Context, snap *entitlements.Snapshot) {
	data, err := snap.Canonical()
	if err != nil {
		log.Errorf("snapshot cache encode for %s failed: %v", snap.TenantID, err)
		return
	}
	key := Key(snap.TenantID, snap.Version)
	if err := l.store.Set(ctx, key, data, l.ttl); err != nil {
		log.Warnf("snapshot cache set %s failed: %v", key, err)
	}
}

// Invalidate removes the tenant's entries for the given versions.
func (l *Layer) Invalidate(ctx context.Context, tenantID string, versions ...int) {
	if len(versions) == 0 {
		return
	}
	keys := make([]string, 0, len(versions))
	for _, v := range versions {
		if v > 0 {
			keys = append(keys, Key(tenantID, v))
		}
	}
	l.delete(ctx, keys...)
}

func (l *Layer) delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		log.Warnf("snapshot cache delete %v failed: %v", keys, err)
	}
}
