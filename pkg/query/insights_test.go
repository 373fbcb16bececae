package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttl    time.Duration
	getErr error
	setErr error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = val
	c.ttl = ttl
	return nil
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	a, err := NewAnalytics(&recordingQuerier{}, sqldialect.Postgres, testTable, nil)
	require.NoError(t, err)

	k1 := a.CacheKey(Filter{Brands: []string{"A"}})
	assert.Equal(t, k1, a.CacheKey(Filter{Brands: []string{"A"}}))
	assert.NotEqual(t, k1, a.CacheKey(Filter{Brands: []string{"B"}}))
	assert.NotEqual(t, k1, a.CacheKey(Filter{Brands: []string{"A"}, TopLimit: ptr(50)}))
	assert.Regexp(t, `^insights:[0-9a-f]{64}$`, k1)

	// Rating options change the rated predicate and so the key.
	assert.NotEqual(t, a.CacheKey(Filter{}), a.CacheKey(Filter{MinRating: ptr(4.0)}))
	// Limits that clamp to the same value share a key.
	assert.Equal(t, a.CacheKey(Filter{TopLimit: ptr(5000)}), a.CacheKey(Filter{TopLimit: ptr(1000)}))
}

func TestCachedInsights_MissThenHit(t *testing.T) {
	t.Parallel()

	a, reg := newAnalytics(t,
		item{id: 1, brand: "A", title: "t", price: 50, mrp: 100, discount: 50.0, rating: 4, ratingTotal: 3},
	)
	cache := newMemCache()
	c := NewCachedInsights(a, cache, time.Minute)

	first, err := c.Insights(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cache.ttl)
	assert.Len(t, cache.data, 1)

	second, err := c.Insights(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheHits))
}

func TestCachedInsights_CacheFailuresAreSoft(t *testing.T) {
	t.Parallel()

	a, _ := newAnalytics(t, item{id: 1, brand: "A", price: 1, mrp: 1, discount: 0.0})
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	pack, err := NewCachedInsights(a, cache, time.Minute).Insights(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pack.KPIs.Products)
}

func TestCachedInsights_CorruptEntryRecomputed(t *testing.T) {
	t.Parallel()

	a, _ := newAnalytics(t, item{id: 1, brand: "A", price: 1, mrp: 1, discount: 0.0})
	cache := newMemCache()
	cache.data[a.CacheKey(Filter{})] = []byte("{not json")

	pack, err := NewCachedInsights(a, cache, time.Minute).Insights(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pack.KPIs.Products)
}

func TestCachedInsights_NilCache(t *testing.T) {
	t.Parallel()

	a, _ := newAnalytics(t)
	pack, err := NewCachedInsights(a, nil, 0).Insights(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{NoMatchSentence}, pack.Bullets)
}
