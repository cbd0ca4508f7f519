package snapshotcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
	"github.com/ManuelReschke/RulesService/internal/pkg/metrics/counter"
)

type failingStore struct{}

var errDown = errors.New("cache down")

func (failingStore) Get(context.Context, string) ([]byte, error)              { return nil, errDown }
func (failingStore) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (failingStore) Delete(context.Context, ...string) error                  { return errDown }
func (failingStore) Ping(context.Context) error                               { return errDown }
func (failingStore) Close() error                                             { return nil }

type fixedVersions struct {
	mu       sync.Mutex
	versions map[string]int
}

func (f *fixedVersions) Current(_ context.Context, tenantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[tenantID]
	if !ok {
		return 0, apperrors.NotFound("tenant plan for %s not found", tenantID)
	}
	return v, nil
}

func (f *fixedVersions) set(tenantID string, v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[tenantID] = v
}

type countingEngine struct {
	versions *fixedVersions
	calls    atomic.Int32
	delay    time.Duration
}

func (e *countingEngine) Compute(ctx context.Context, tenantID string) (*entitlements.Snapshot, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	v, err := e.versions.Current(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return snapshot(tenantID, v), nil
}

// gatedEngine blocks in Compute until release is closed or its ctx ends.
type gatedEngine struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (e *gatedEngine) Compute(ctx context.Context, tenantID string) (*entitlements.Snapshot, error) {
	e.calls.Add(1)
	e.once.Do(func() { close(e.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.release:
		return snapshot(tenantID, 1), nil
	}
}

func snapshot(tenantID string, version int) *entitlements.Snapshot {
	return &entitlements.Snapshot{
		TenantID:      tenantID,
		Plan:          "silver",
		Limits:        map[string]int64{"stylists": 5},
		Features:      map[string]bool{"reviews": true},
		OveragePolicy: map[string]bool{},
		Extras:        map[string]any{},
		PricingRefs:   entitlements.PricingRefs{Addons: map[string]string{}},
		Version:       version,
		UpdatedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TTLHintSec:    900,
	}
}

func newMemoryStore(t *testing.T) *cache.MemoryStore {
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rules:tenant:ten_1:v3:blob", Key("ten_1", 3))
}

func TestLayer_PutGetInvalidate(t *testing.T) {
	layer := NewLayer(newMemoryStore(t), time.Minute)
	ctx := context.Background()

	_, ok := layer.Get(ctx, "ten_1", 1)
	assert.False(t, ok)

	layer.Put(ctx, snapshot("ten_1", 1))
	got, ok := layer.Get(ctx, "ten_1", 1)
	require.True(t, ok)
	assert.Equal(t, 1, got.Version)

	_, ok = layer.Get(ctx, "ten_1", 2)
	assert.False(t, ok, "entries are version scoped")

	layer.Invalidate(ctx, "ten_1", 0, 1)
	_, ok = layer.Get(ctx, "ten_1", 1)
	assert.False(t, ok)
}

func TestLayer_DropsMismatchedEntry(t *testing.T) {
	store := newMemoryStore(t)
	layer := NewLayer(store, time.Minute)
	ctx := context.Background()

	data, err := snapshot("ten_2", 1).Canonical()
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, Key("ten_1", 1), data, time.Minute))

	_, ok := layer.Get(ctx, "ten_1", 1)
	assert.False(t, ok)
	_, err = store.Get(ctx, Key("ten_1", 1))
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestLayer_StoreFailuresAreSwallowed(t *testing.T) {
	layer := NewLayer(failingStore{}, time.Minute)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		layer.Put(ctx, snapshot("ten_1", 1))
		layer.Invalidate(ctx, "ten_1", 1)
	})
	_, ok := layer.Get(ctx, "ten_1", 1)
	assert.False(t, ok)
}

func TestReader_ReadThrough(t *testing.T) {
	versions := &fixedVersions{versions: map[string]int{"ten_1": 1}}
	engine := &countingEngine{versions: versions}
	ctx := context.Background()
	stats, err := counter.New()
	require.NoError(t, err)
	reader := NewReader(NewLayer(newMemoryStore(t), time.Minute), versions, engine, stats)

	first, err := reader.Read(ctx, "ten_1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := reader.Read(ctx, "ten_1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ETag, second.ETag)
	assert.Equal(t, int32(1), engine.calls.Load())

	values, err := stats.Values(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, values[counter.SnapshotHits])
	assert.EqualValues(t, 1, values[counter.SnapshotMisses])
	assert.EqualValues(t, 1, values[counter.SnapshotComputes])
}

func TestReader_NewVersionBypassesOldEntry(t *testing.T) {
	versions := &fixedVersions{versions: map[string]int{"ten_1": 1}}
	engine := &countingEngine{versions: versions}
	reader := NewReader(NewLayer(newMemoryStore(t), time.Minute), versions, engine, nil)
	ctx := context.Background()

	first, err := reader.Read(ctx, "ten_1")
	require.NoError(t, err)

	// A bump whose invalidation never reached the cache.
	versions.set("ten_1", 2)
	second, err := reader.Read(ctx, "ten_1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Snapshot.Version)
	assert.NotEqual(t, first.ETag, second.ETag)
	assert.Equal(t, int32(2), engine.calls.Load())
}

func TestReader_CacheOutageFallsBackToCompute(t *testing.T) {
	versions := &fixedVersions{versions: map[string]int{"ten_1": 4}}
	engine := &countingEngine{versions: versions}
	reader := NewReader(NewLayer(failingStore{}, time.Minute), versions, engine, nil)

	res, err := reader.Read(context.Background(), "ten_1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Snapshot.Version)
	assert.NotEmpty(t, res.ETag)
}

func TestReader_NotFoundIsNotSwallowed(t *testing.T) {
	versions := &fixedVersions{versions: map[string]int{}}
	reader := NewReader(NewLayer(newMemoryStore(t), time.Minute), versions, &countingEngine{versions: versions}, nil)

	_, err := reader.Read(context.Background(), "nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReader_CoalescesConcurrentMisses(t *testing.T) {
	versions := &fixedVersions{versions: map[string]int{"ten_1": 1}}
	engine := &countingEngine{versions: versions, delay: 50 * time.Millisecond}
	reader := NewReader(NewLayer(newMemoryStore(t), time.Minute), versions, engine, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reader.Read(context.Background(), "ten_1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, engine.calls.Load(), int32(10))
}

func TestReader_CancelledCallerDoesNotFailOthers(t *testing.T) {
	versions := &fixedVersions{versions: map[string]int{"ten_1": 1}}
	engine := &gatedEngine{started: make(chan struct{}), release: make(chan struct{})}
	reader := NewReader(NewLayer(newMemoryStore(t), time.Minute), versions, engine, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reader.Read(firstCtx, "ten_1")
		firstErr <- err
	}()
	<-engine.started

	type outcome struct {
		res *Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := reader.Read(context.Background(), "ten_1")
		second <- outcome{res, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(engine.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.res.Snapshot.Version)
	assert.Equal(t, int32(1), engine.calls.Load())
}
