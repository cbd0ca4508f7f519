package snapshotcache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
	"github.com/ManuelReschke/RulesService/internal/pkg/metrics/counter"
)

// VersionSource returns a tenant's current configuration version.
type VersionSource interface {
	Current(ctx context.Context, tenantID string) (int, error)
}

// Computer merges a tenant's snapshot from the configuration store.
type Computer interface {
	Compute(ctx context.Context, tenantID string) (*entitlements.Snapshot, error)
}

// Result is a snapshot ready to serve.
type Result struct {
	Snapshot *entitlements.Snapshot
	ETag     string
	Cached   bool
}

// Reader is the read-through path: current version, cache, then merge.
type Reader struct {
	layer    *Layer
	versions VersionSource
	engine   Computer
	group    singleflight.Group
	stats    *counter.Set
}

// NewReader builds the read path. stats may be nil.
func NewReader(layer *Layer, versions VersionSource, engine Computer, stats *counter.Set) *Reader {
	return &Reader{layer: layer, versions: versions, engine: engine, stats: stats}
}

// Read returns the tenant's snapshot at its current version or newer. The
// ETag is computed from the served snapshot on every call.
func (r *Reader) Read(ctx context.Context, tenantID string) (*Result, error) {
	version, err := r.versions.Current(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if snap, ok := r.layer.Get(ctx, tenantID, version); ok {
		r.stats.Inc(ctx, counter.SnapshotHits)
		return withETag(snap, true)
	}
	r.stats.Inc(ctx, counter.SnapshotMisses)

	// The flight outlives any single caller; each caller waits on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(Key(tenantID, version), func() (any, error) {
		r.stats.Inc(flightCtx, counter.SnapshotComputes)
		snap, err := r.engine.Compute(flightCtx, tenantID)
		if err != nil {
			return nil, err
		}
		r.layer.Put(flightCtx, snap)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return withETag(res.Val.(*entitlements.Snapshot), false)
	}
}

func withETag(snap *entitlements.Snapshot, cached bool) (*Result, error) {
	etag, err := snap.ETag()
	if err != nil {
		return nil, err
	}
	return &Result{Snapshot: snap, ETag: etag, Cached: cached}, nil
}
