// Package cache memoizes per-sample embeddings so each enrollment sample is
// fetched and extracted at most once while its entry is valid.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

// FetchFunc loads the raw bytes of the sample being resolved.
type FetchFunc func(ctx context.Context) ([]byte, error)

// ExtractFunc turns raw bytes into an embedding. It must return an error
// matching domain.ErrNoFaceDetected when the input holds no subject.
type ExtractFunc func(ctx context.Context, data []byte) (embedding.Vector, error)

// NegativePolicy controls how "no subject found" results are remembered.
type NegativePolicy string

const (
	NegativeNone      NegativePolicy = "none"
	NegativeTTL       NegativePolicy = "ttl"
	NegativePermanent NegativePolicy = "permanent"
)

func ParseNegativePolicy(s string) (NegativePolicy, error) {
	switch p := NegativePolicy(s); p {
	case NegativeNone, NegativeTTL, NegativePermanent:
		return p, nil
	default:
		return "", fmt.Errorf("unknown negative cache policy %q", s)
	}
}

// Outcome classifies a GetOrCompute call for observers.
type Outcome string

const (
	OutcomeHit      Outcome = "hit"
	OutcomeDurable  Outcome = "durable_hit"
	OutcomeMiss     Outcome = "miss"
	OutcomeNegative Outcome = "negative"
	OutcomeError    Outcome = "error"
)

type Observer interface {
	ObserveCache(outcome Outcome)
}

// Store is an optional second tier that survives restarts.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Options struct {
	NegativePolicy NegativePolicy
	NegativeTTL    time.Duration

	// Store and StoreTTL enable the durable tier. Nil disables it.
	Store    Store
	StoreTTL time.Duration

	Observer Observer
	Logger   *slog.Logger
}

type entry struct {
	vector    embedding.Vector
	negative  bool
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// slot serializes computation for one sample id. epoch is bumped by
// Invalidate so an in-flight computation knows not to publish.
type slot struct {
	sem   chan struct{}
	refs  int
	epoch uint64
}

type EmbeddingCache struct {
	mu      sync.Mutex
	entries map[string]entry
	slots   map[string]*slot

	negativePolicy NegativePolicy
	negativeTTL    time.Duration
	store          Store
	storeTTL       time.Duration
	observer       Observer
	logger         *slog.Logger
	now            func() time.Time
}

func NewEmbeddingCache(opts Options) *EmbeddingCache {
	if opts.NegativePolicy == "" {
		opts.NegativePolicy = NegativeTTL
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = 10 * time.Minute
	}
	if opts.StoreTTL <= 0 {
		opts.StoreTTL = 30 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &EmbeddingCache{
		entries:        make(map[string]entry),
		slots:          make(map[string]*slot),
		negativePolicy: opts.NegativePolicy,
		negativeTTL:    opts.NegativeTTL,
		store:          opts.Store,
		storeTTL:       opts.StoreTTL,
		observer:       opts.Observer,
		logger:         opts.Logger.With("component", "embedding_cache"),
		now:            time.Now,
	}
}

// GetOrCompute returns the embedding for sampleID, computing it with fetch
// and extract on a miss. The boolean is false when no embedding is
// available. Fetch failures, extractor transport errors and cancellation are
// reported as absent for this call only and are never cached.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, sampleID string, fetch FetchFunc, extract ExtractFunc) (embedding.Vector, bool) {
	if v, ok, found := c.lookup(sampleID); found {
		c.observe(hitOutcome(ok))
		return v, ok
	}

	s, err := c.acquire(ctx, sampleID)
	if err != nil {
		c.observe(OutcomeError)
		return nil, false
	}
	defer c.release(sampleID, s)

	// another caller may have filled the entry while we waited
	if v, ok, found := c.lookup(sampleID); found {
		c.observe(hitOutcome(ok))
		return v, ok
	}

	c.mu.Lock()
	epoch := s.epoch
	c.mu.Unlock()

	if e, found := c.loadDurable(ctx, sampleID); found {
		c.publish(sampleID, s, epoch, e)
		c.observe(OutcomeDurable)
		return e.vector, !e.negative
	}

	e, err := c.compute(ctx, fetch, extract)
	if err != nil {
		c.logger.Warn("embedding unavailable", "sample_id", sampleID, "error", err)
		c.observe(OutcomeError)
		return nil, false
	}

	if e.negative {
		c.observe(OutcomeNegative)
		if c.negativePolicy == NegativeNone {
			return nil, false
		}
	} else {
		c.observe(OutcomeMiss)
	}

	if c.publish(sampleID, s, epoch, e) {
		c.saveDurable(ctx, sampleID, s, epoch, e)
	}

	return e.vector, !e.negative
}

// Invalidate drops the entry for sampleID from every tier. A computation
// already running for the same id will not publish its result.
func (c *EmbeddingCache) Invalidate(ctx context.Context, sampleID string) error {
	c.mu.Lock()
	delete(c.entries, sampleID)
	if s, ok := c.slots[sampleID]; ok {
		s.epoch++
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Delete(ctx, storeKey(sampleID)); err != nil {
		return fmt.Errorf("invalidate %s: %w", sampleID, err)
	}
	return nil
}

// Len reports the number of in-memory entries, expired ones included.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *EmbeddingCache) lookup(sampleID string) (embedding.Vector, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[sampleID]
	if !found {
		return nil, false, false
	}
	if e.expired(c.now()) {
		delete(c.entries, sampleID)
		return nil, false, false
	}
	return e.vector, !e.negative, true
}

func (c *EmbeddingCache) acquire(ctx context.Context, sampleID string) (*slot, error) {
	c.mu.Lock()
	s, ok := c.slots[sampleID]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		c.slots[sampleID] = s
	}
	s.refs++
	c.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
		return s, nil
	case <-ctx.Done():
		c.unref(sampleID, s)
		return nil, ctx.Err()
	}
}

func (c *EmbeddingCache) release(sampleID string, s *slot) {
	<-s.sem
	c.unref(sampleID, s)
}

func (c *EmbeddingCache) unref(sampleID string, s *slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(c.slots, sampleID)
	}
}

func (c *EmbeddingCache) compute(ctx context.Context, fetch FetchFunc, extract ExtractFunc) (entry, error) {
	data, err := fetch(ctx)
	if err != nil {
		return entry{}, fmt.Errorf("fetch: %w", err)
	}

	v, err := extract(ctx, data)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entry{}, fmt.Errorf("extract: %w", ctxErr)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoFaceDetected) {
			return c.negativeEntry(), nil
		}
		return entry{}, fmt.Errorf("extract: %w", err)
	}

	// extractors should hand back unit vectors; degenerate output counts as no subject
	unit, ok := embedding.Normalize(v)
	if !ok {
		return c.negativeEntry(), nil
	}
	return entry{vector: unit}, nil
}

func (c *EmbeddingCache) negativeEntry() entry {
	e := entry{negative: true}
	if c.negativePolicy == NegativeTTL {
		e.expiresAt = c.now().Add(c.negativeTTL)
	}
	return e
}

// publish stores e unless the slot was invalidated after epoch was taken.
func (c *EmbeddingCache) publish(sampleID string, s *slot, epoch uint64, e entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	c.entries[sampleID] = e
	return true
}

func (c *EmbeddingCache) loadDurable(ctx context.Context, sampleID string) (entry, bool) {
	if c.store == nil {
		return entry{}, false
	}

	raw, err := c.store.Get(ctx, storeKey(sampleID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheExpired) {
			c.logger.Warn("durable cache read failed", "sample_id", sampleID, "error", err)
		}
		return entry{}, false
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		c.logger.Warn("durable cache entry unreadable", "sample_id", sampleID, "error", err)
		return entry{}, false
	}

	if rec.Negative {
		if c.negativePolicy == NegativeNone {
			return entry{}, false
		}
		return c.negativeEntry(), true
	}

	v, ok := embedding.Normalize(rec.Vector)
	if !ok {
		return entry{}, false
	}
	return entry{vector: v}, true
}

func (c *EmbeddingCache) saveDurable(ctx context.Context, sampleID string, s *slot, epoch uint64, e entry) {
	if c.store == nil {
		return
	}

	ttl := c.storeTTL
	if e.negative && c.negativePolicy == NegativeTTL {
		ttl = c.negativeTTL
	}

	raw, err := encodeRecord(record{Vector: e.vector, Negative: e.negative})
	if err != nil {
		c.logger.Warn("durable cache encode failed", "sample_id", sampleID, "error", err)
		return
	}

	if err := c.store.Set(ctx, storeKey(sampleID), raw, ttl); err != nil {
		c.logger.Warn("durable cache write failed", "sample_id", sampleID, "error", err)
		return
	}

	// an invalidation may have landed between publish and the write above
	c.mu.Lock()
	stale := s.epoch != epoch
	c.mu.Unlock()
	if stale {
		if err := c.store.Delete(ctx, storeKey(sampleID)); err != nil {
			c.logger.Warn("durable cache cleanup failed", "sample_id", sampleID, "error", err)
		}
	}
}

func (c *EmbeddingCache) observe(o Outcome) {
	if c.observer != nil {
		c.observer.ObserveCache(o)
	}
}

func hitOutcome(ok bool) Outcome {
	if ok {
		return OutcomeHit
	}
	return OutcomeNegative
}
