package entitlements

import (
	"context"
	"time"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
)

// Source is the part of the configuration store the engine reads.
type Source interface {
	LoadAggregate(ctx context.Context, tenantID string) (*repository.Aggregate, error)
	EnsureOverageRefs(ctx context.Context, tenantID string) (*models.OveragePriceRefs, error)
}

// Engine computes snapshots from the configuration store.
type Engine struct {
	source  Source
	ttlHint time.Duration
}

func NewEngine(source Source, ttlHint time.Duration) *Engine {
	return &Engine{source: source, ttlHint: ttlHint}
}

// Compute loads the tenant aggregate and merges it. It fails with a
// NotFound error when the tenant has no plan assignment or the assigned
// plan row is missing. The baseline overage refs row is created on first
// use; that write does not change the tenant's version.
func (e *Engine) Compute(ctx context.Context, tenantID string) (*Snapshot, error) {
	agg, err := e.source.LoadAggregate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if agg.OverageRefs == nil {
		refs, err := e.source.EnsureOverageRefs(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		agg.OverageRefs = refs
	}
	return Merge(agg, int(e.ttlHint/time.Second))
}
