package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

type counter struct {
	fetches  atomic.Int32
	extracts atomic.Int32
}

func (c *counter) fetch(data []byte, err error) FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		c.fetches.Add(1)
		return data, err
	}
}

func (c *counter) extract(v embedding.Vector, err error) ExtractFunc {
	return func(ctx context.Context, data []byte) (embedding.Vector, error) {
		c.extracts.Add(1)
		return v, err
	}
}

type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type outcomes struct {
	mu   sync.Mutex
	seen map[Outcome]int
}

func (o *outcomes) ObserveCache(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = map[Outcome]int{}
	}
	o.seen[outcome]++
}

func (o *outcomes) count(outcome Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seen[outcome]
}

var unit = embedding.Vector{0.6, 0.8}

func TestGetOrCompute_ExtractsAtMostOnce(t *testing.T) {
	obs := &outcomes{}
	c := NewEmbeddingCache(Options{Observer: obs})
	calls := &counter{}
	ctx := context.Background()

	first, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
	require.True(t, ok)
	second, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.fetches.Load())
	assert.Equal(t, int32(1), calls.extracts.Load())
	assert.Equal(t, 1, obs.count(OutcomeMiss))
	assert.Equal(t, 1, obs.count(OutcomeHit))
}

func TestGetOrCompute_NormalizesExtractorOutput(t *testing.T) {
	c := NewEmbeddingCache(Options{})
	calls := &counter{}

	v, ok := c.GetOrCompute(context.Background(), "s1", calls.fetch([]byte("img"), nil), calls.extract(embedding.Vector{3, 4}, nil))
	require.True(t, ok)
	assert.True(t, v.IsUnit())
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	store := newMemStore()
	c := NewEmbeddingCache(Options{Store: store})
	calls := &counter{}
	ctx := context.Background()

	_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
	require.True(t, ok)
	require.True(t, store.has(storeKey("s1")))

	require.NoError(t, c.Invalidate(ctx, "s1"))
	assert.False(t, store.has(storeKey("s1")))
	assert.Equal(t, 0, c.Len())

	_, ok = c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
	require.True(t, ok)
	assert.Equal(t, int32(2), calls.extracts.Load())
}

func TestGetOrCompute_DistinctKeysAreIndependent(t *testing.T) {
	c := NewEmbeddingCache(Options{})
	calls := &counter{}
	ctx := context.Background()

	_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("a"), nil), calls.extract(unit, nil))
	require.True(t, ok)
	_, ok = c.GetOrCompute(ctx, "s2", calls.fetch([]byte("b"), nil), calls.extract(embedding.Vector{1, 0}, nil))
	require.True(t, ok)

	assert.Equal(t, int32(2), calls.extracts.Load())
	assert.Equal(t, 2, c.Len())
}

func TestGetOrCompute_ConcurrentSameKeyComputesOnce(t *testing.T) {
	c := NewEmbeddingCache(Options{})
	var extracts atomic.Int32
	release := make(chan struct{})

	extract := func(ctx context.Context, data []byte) (embedding.Vector, error) {
		extracts.Add(1)
		<-release
		return unit, nil
	}
	fetch := func(ctx context.Context) ([]byte, error) { return []byte("img"), nil }

	const callers = 16
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.GetOrCompute(context.Background(), "shared", fetch, extract)
		}(i)
	}

	// let the first caller get into extract before unblocking everyone
	require.Eventually(t, func() bool { return extracts.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), extracts.Load())
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestGetOrCompute_TransientFailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name    string
		fetch   error
		extract error
	}{
		{name: "fetch failure", fetch: errors.New("connection refused")},
		{name: "extractor transport failure", extract: errors.New("deepface: status 503")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &outcomes{}
			c := NewEmbeddingCache(Options{Observer: obs, NegativePolicy: NegativePermanent})
			calls := &counter{}
			ctx := context.Background()

			_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), tt.fetch), calls.extract(unit, tt.extract))
			assert.False(t, ok)
			assert.Equal(t, 0, c.Len())
			assert.Equal(t, 1, obs.count(OutcomeError))

			v, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
			assert.True(t, ok)
			assert.Equal(t, unit, v)
		})
	}
}

func TestGetOrCompute_CancelledExtractionIsNotCached(t *testing.T) {
	c := NewEmbeddingCache(Options{NegativePolicy: NegativePermanent})
	ctx, cancel := context.WithCancel(context.Background())

	extract := func(ctx context.Context, data []byte) (embedding.Vector, error) {
		cancel()
		return nil, fmt.Errorf("deepface: %w", domain.ErrNoFaceDetected)
	}
	fetch := func(ctx context.Context) ([]byte, error) { return []byte("img"), nil }

	_, ok := c.GetOrCompute(ctx, "s1", fetch, extract)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCompute_NegativePolicies(t *testing.T) {
	noFace := fmt.Errorf("synthetic: %w", domain.ErrNoFaceDetected)

	t.Run("none retries every time", func(t *testing.T) {
		c := NewEmbeddingCache(Options{NegativePolicy: NegativeNone})
		calls := &counter{}
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(nil, noFace))
			assert.False(t, ok)
		}
		assert.Equal(t, int32(3), calls.extracts.Load())
	})

	t.Run("permanent never retries", func(t *testing.T) {
		c := NewEmbeddingCache(Options{NegativePolicy: NegativePermanent})
		calls := &counter{}
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(nil, noFace))
			assert.False(t, ok)
		}
		assert.Equal(t, int32(1), calls.extracts.Load())
	})

	t.Run("ttl retries after expiry", func(t *testing.T) {
		c := NewEmbeddingCache(Options{NegativePolicy: NegativeTTL, NegativeTTL: time.Minute})
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }
		calls := &counter{}
		ctx := context.Background()

		_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(nil, noFace))
		assert.False(t, ok)
		_, ok = c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(nil, noFace))
		assert.False(t, ok)
		assert.Equal(t, int32(1), calls.extracts.Load())

		now = now.Add(2 * time.Minute)
		v, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
		assert.True(t, ok)
		assert.Equal(t, unit, v)
		assert.Equal(t, int32(2), calls.extracts.Load())
	})

	t.Run("degenerate vector counts as no subject", func(t *testing.T) {
		obs := &outcomes{}
		c := NewEmbeddingCache(Options{NegativePolicy: NegativePermanent, Observer: obs})
		calls := &counter{}

		_, ok := c.GetOrCompute(context.Background(), "s1", calls.fetch([]byte("img"), nil), calls.extract(embedding.Vector{0, 0}, nil))
		assert.False(t, ok)
		assert.Equal(t, 1, obs.count(OutcomeNegative))
		assert.Equal(t, 1, c.Len())
	})
}

func TestInvalidate_DuringComputeDoesNotResurrect(t *testing.T) {
	store := newMemStore()
	c := NewEmbeddingCache(Options{Store: store})
	started := make(chan struct{})
	release := make(chan struct{})

	slow := func(ctx context.Context, data []byte) (embedding.Vector, error) {
		close(started)
		<-release
		return unit, nil
	}
	fetch := func(ctx context.Context) ([]byte, error) { return []byte("old"), nil }

	done := make(chan bool)
	go func() {
		_, ok := c.GetOrCompute(context.Background(), "s1", fetch, slow)
		done <- ok
	}()

	<-started
	require.NoError(t, c.Invalidate(context.Background(), "s1"))
	close(release)
	assert.True(t, <-done)

	assert.Equal(t, 0, c.Len())
	assert.False(t, store.has(storeKey("s1")))
}

func TestGetOrCompute_WaiterHonoursContext(t *testing.T) {
	c := NewEmbeddingCache(Options{})
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	blocking := func(ctx context.Context, data []byte) (embedding.Vector, error) {
		close(started)
		<-release
		return unit, nil
	}
	fetch := func(ctx context.Context) ([]byte, error) { return []byte("img"), nil }

	go c.GetOrCompute(context.Background(), "s1", fetch, blocking)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := &counter{}
	_, ok := c.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
	assert.False(t, ok)
	assert.Equal(t, int32(0), calls.extracts.Load())
}

func TestGetOrCompute_DurableTier(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	warm := NewEmbeddingCache(Options{Store: store, StoreTTL: time.Hour})
	calls := &counter{}
	_, ok := warm.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(unit, nil))
	require.True(t, ok)
	assert.Equal(t, time.Hour, store.ttls[storeKey("s1")])

	// a fresh process reads the durable entry without extracting
	obs := &outcomes{}
	cold := NewEmbeddingCache(Options{Store: store, Observer: obs})
	v, ok := cold.GetOrCompute(ctx, "s1", calls.fetch([]byte("img"), nil), calls.extract(nil, errors.New("must not run")))
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64(unit), []float64(v), 1e-12)
	assert.Equal(t, int32(1), calls.extracts.Load())
	assert.Equal(t, 1, obs.count(OutcomeDurable))
}

func TestGetOrCompute_DurableNegativeUsesNegativeTTL(t *testing.T) {
	store := newMemStore()
	c := NewEmbeddingCache(Options{Store: store, NegativePolicy: NegativeTTL, NegativeTTL: 3 * time.Minute})
	calls := &counter{}

	_, ok := c.GetOrCompute(context.Background(), "s1", calls.fetch([]byte("img"), nil), calls.extract(nil, domain.ErrNoFaceDetected))
	assert.False(t, ok)
	assert.Equal(t, 3*time.Minute, store.ttls[storeKey("s1")])
}

func TestParseNegativePolicy(t *testing.T) {
	for _, s := range []string{"none", "ttl", "permanent"} {
		p, err := ParseNegativePolicy(s)
		assert.NoError(t, err)
		assert.Equal(t, NegativePolicy(s), p)
	}
	_, err := ParseNegativePolicy("forever")
	assert.Error(t, err)
}
