package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/database"
	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
)

func TestHandle_InlineCSV(t *testing.T) {
	ctx := context.Background()
	c := config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
		DBSchema:   "main",
		TableName:  "products",
		BatchSize:  1,
		Workers:    1,
		BlockSize:  1 << 20,
	}
	db, err := database.NewClient(ctx, c.DBDriver, c.DSN())
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.CreateProductsTable(ctx, db.GetDB(), c.Table()))

	eng, err := service.NewEngine(c, nil)
	require.NoError(t, err)

	resp, err := handle(ctx, eng, "main.products", S3EventWrapper{
		CSVData: "product_id,brand,price\n1,Acme,10\n2,Zed,20\n",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Inserted)
	assert.Equal(t, "Inserted 2 records into main.products", resp.Message)
	assert.NotEmpty(t, resp.RunID)

	rows, err := db.Query(ctx, "SELECT COUNT(*) AS n FROM main.products")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows[0]["n"])
}

func TestResolveCSV(t *testing.T) {
	_, _, err := resolveCSV(S3EventWrapper{})
	assert.Error(t, err)

	path, cleanup, err := resolveCSV(S3EventWrapper{CSVData: "a\n1\n"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))
	cleanup()
	assert.NoFileExists(t, path)

	s3Event := S3EventWrapper{Records: []events.S3EventRecord{{}}}
	t.Setenv("APP_ENV", "production")
	_, _, err = resolveCSV(s3Event)
	assert.Error(t, err)

	t.Setenv("APP_ENV", "local")
	t.Setenv("LOCAL_CSV_PATH", "fixtures/products.csv")
	path, _, err = resolveCSV(s3Event)
	require.NoError(t, err)
	assert.Equal(t, "fixtures/products.csv", path)
}
