package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"gitlab.connectwisedev.com/catalog-insights/models"
)

// Tables groups the list results of an insights pack.
type Tables struct {
	BrandConcentration []BrandShare     `json:"brand_concentration"`
	DiscountBands      []Band           `json:"discount_bands"`
	TopDiscountedRated []models.Product `json:"top_discounted_rated"`
}

// Pack is the full answer to one filter request.
type Pack struct {
	KPIs    KPIs     `json:"kpis"`
	Tables  Tables   `json:"tables"`
	Bullets []string `json:"bullets"`
}

// Provider produces insights packs; *Analytics and *CachedInsights both
// implement it.
type Provider interface {
	Insights(ctx context.Context, f Filter) (*Pack, error)
}

// Insights runs the KPI, brand and band aggregates over the
// rating-exclusive predicate and the rated list over the rating-inclusive
// one, then summarizes them.
func (a *Analytics) Insights(ctx context.Context, f Filter) (*Pack, error) {
	catalog := BuildPredicate(f, false)
	rated := BuildPredicate(f, true)
	log.Printf("insights on %s: catalog=%s rated=%s", a.table, catalog, rated)

	kpis, err := a.CoreKPIs(ctx, catalog)
	if err != nil {
		return nil, err
	}
	brands, err := a.BrandConcentration(ctx, catalog)
	if err != nil {
		return nil, err
	}
	bands, err := a.DiscountBands(ctx, catalog)
	if err != nil {
		return nil, err
	}
	top, err := a.TopDiscountedRated(ctx, rated, f.Limit())
	if err != nil {
		return nil, err
	}

	return &Pack{
		KPIs: kpis,
		Tables: Tables{
			BrandConcentration: brands,
			DiscountBands:      bands,
			TopDiscountedRated: top,
		},
		Bullets: Summarize(kpis, brands, bands),
	}, nil
}

// CacheKey identifies the result of f on this table: two filters that
// render to the same SQL and arguments share a key.
func (a *Analytics) CacheKey(f Filter) string {
	catalogSQL, catalogArgs := BuildPredicate(f, false).Render(a.d, 0)
	ratedSQL, ratedArgs := BuildPredicate(f, true).Render(a.d, 0)
	payload, _ := json.Marshal([]any{
		a.table.String(), catalogSQL, catalogArgs, ratedSQL, ratedArgs, f.Limit(),
	})
	sum := sha256.Sum256(payload)
	return "insights:" + hex.EncodeToString(sum[:])
}

// Cache stores serialized packs. Get reports a miss with ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// CachedInsights serves packs from a Cache and falls back to the
// database. Cache errors never fail a request.
type CachedInsights struct {
	analytics *Analytics
	cache     Cache
	ttl       time.Duration
}

// NewCachedInsights wraps a with cache. A nil cache disables caching.
func NewCachedInsights(a *Analytics, cache Cache, ttl time.Duration) *CachedInsights {
	return &CachedInsights{analytics: a, cache: cache, ttl: ttl}
}

func (c *CachedInsights) Insights(ctx context.Context, f Filter) (*Pack, error) {
	if c.cache == nil {
		return c.analytics.Insights(ctx, f)
	}

	key := c.analytics.CacheKey(f)
	val, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Printf("Error reading insights cache (%v), falling back to DB.", err)
	}
	if ok {
		var pack Pack
		if err := json.Unmarshal(val, &pack); err == nil {
			c.analytics.metrics.CacheHits.Inc()
			return &pack, nil
		}
		log.Printf("Discarding unreadable cached pack %s", key)
	}
	c.analytics.metrics.CacheMisses.Inc()

	pack, err := c.analytics.Insights(ctx, f)
	if err != nil {
		return nil, err
	}
	if body, err := json.Marshal(pack); err == nil {
		if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
			log.Printf("Error writing insights cache: %v", err)
		}
	}
	return pack, nil
}
