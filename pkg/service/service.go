// Package service wires configuration into ready-to-use ingestion and
// analytics components for the entry binaries.
package service

import (
	"context"
	"log"

	"gitlab.connectwisedev.com/catalog-insights/pkg/cache"
	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/database"
	"gitlab.connectwisedev.com/catalog-insights/pkg/ingest"
	"gitlab.connectwisedev.com/catalog-insights/pkg/metrics"
	"gitlab.connectwisedev.com/catalog-insights/pkg/query"
)

// NewEngine builds an ingestion engine whose workers each open their own
// connection from cfg.
func NewEngine(cfg config.Config, reg *metrics.Registry) (*ingest.Engine, error) {
	connector, err := database.NewConnector(cfg.DBDriver, cfg.DSN(), cfg.Table())
	if err != nil {
		return nil, err
	}
	return ingest.NewEngine(ingest.Config{
		Table:     cfg.Table(),
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
		BlockSize: cfg.BlockSize,
	}, connector, reg)
}

// Insights bundles the analytics stack and the connections it owns.
type Insights struct {
	Analytics *query.Analytics
	Provider  query.Provider
	db        *database.DBClient
	redis     *cache.RedisClient
}

// NewInsights connects to the database and, when cfg.RedisAddr is set, to
// Redis. An unreachable Redis only disables caching.
func NewInsights(ctx context.Context, cfg config.Config, reg *metrics.Registry) (*Insights, error) {
	db, err := database.NewClient(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	a, err := query.NewAnalytics(db, db.Dialect(), cfg.Table(), reg)
	if err != nil {
		db.Close()
		return nil, err
	}

	ins := &Insights{Analytics: a, Provider: a, db: db}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Printf("Redis unavailable (%v), serving insights uncached.", err)
		} else {
			ins.redis = rc
			ins.Provider = query.NewCachedInsights(a, rc, cfg.CacheTTL)
		}
	}
	return ins, nil
}

// DB exposes the read pool, e.g. for bootstrap DDL.
func (i *Insights) DB() *database.DBClient { return i.db }

// Close releases the database and Redis connections.
func (i *Insights) Close() {
	if i.redis != nil {
		i.redis.Close()
	}
	i.db.Close()
}
