package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/database"
	"gitlab.connectwisedev.com/catalog-insights/pkg/query"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
		DBSchema:   "main",
		TableName:  "products",
		BatchSize:  2,
		Workers:    2,
		BlockSize:  1 << 20,
		RedisAddr:  "127.0.0.1:1",
	}
}

func TestIngestThenInsights(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	ins, err := NewInsights(ctx, cfg, nil)
	require.NoError(t, err)
	defer ins.Close()
	require.NoError(t, database.CreateProductsTable(ctx, ins.DB().GetDB(), cfg.Table()))

	_, cached := ins.Provider.(*query.CachedInsights)
	assert.False(t, cached, "unreachable redis falls back to uncached")

	path := filepath.Join(t.TempDir(), "p.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"product_id,brand,price,mrp,discount_percent,rating,rating_total\n"+
			"1,Acme,50,100,50,4.5,10\n"+
			"2,Acme,100,100,0,4.0,3\n"+
			"3,Zed,oops,80,25,,0\n"), 0o644))

	eng, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	res, err := eng.Run(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)

	pack, err := ins.Provider.Insights(ctx, query.Filter{Brands: []string{"Acme"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pack.KPIs.Products)
	assert.Equal(t, int64(1), pack.KPIs.NoDiscountItems)
	assert.Len(t, pack.Tables.TopDiscountedRated, 2)
}

func TestNewEngine_BadDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DBDriver = "oracle"
	_, err := NewEngine(cfg, nil)
	assert.Error(t, err)
}
