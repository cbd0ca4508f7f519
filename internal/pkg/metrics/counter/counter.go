// Package counter records snapshot read counters as OpenTelemetry
// instruments and reads their totals back for the health endpoint.
package counter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	SnapshotHits     = "rules.snapshot.hits"
	SnapshotMisses   = "rules.snapshot.misses"
	SnapshotComputes = "rules.snapshot.computes"
)

const meterName = "github.com/ManuelReschke/RulesService/snapshotcache"

var descriptions = map[string]string{
	SnapshotHits:     "Snapshot reads served from the cache",
	SnapshotMisses:   "Snapshot reads that missed the cache",
	SnapshotComputes: "Snapshots merged from the configuration store",
}

// Set owns a meter provider with a manual reader so totals can be
// collected in-process.
type Set struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	counters map[string]metric.Int64Counter
}

func New() (*Set, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(meterName)

	s := &Set{provider: provider, reader: reader, counters: make(map[string]metric.Int64Counter, len(descriptions))}
	for name, description := range descriptions {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", name, err)
		}
		s.counters[name] = c
	}
	return s, nil
}

// Provider is the meter provider backing the set.
func (s *Set) Provider() metric.MeterProvider {
	return s.provider
}

// Inc adds one to name. Safe on a nil Set.
func (s *Set) Inc(ctx context.Context, name string) {
	if s == nil {
		return
	}
	if c, ok := s.counters[name]; ok {
		c.Add(ctx, 1)
	}
}

// Values collects the current total of every counter.
func (s *Set) Values(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	if s == nil {
		return out, nil
	}
	for name := range s.counters {
		out[name] = 0
	}

	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			out[m.Name] = total
		}
	}
	return out, nil
}

// Shutdown stops the meter provider.
func (s *Set) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}
