package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gitlab.connectwisedev.com/catalog-insights/models"
)

var columnTypes = map[models.ColumnKind]string{
	models.KindInt:   "BIGINT",
	models.KindFloat: "DOUBLE PRECISION",
	models.KindText:  "TEXT",
}

// CreateProductsTable creates table with the products columns if it does
// not exist yet. It bootstraps empty local stores; it never alters an
// existing table.
func CreateProductsTable(ctx context.Context, db *sql.DB, table models.TableRef) error {
	if err := table.Validate(); err != nil {
		return err
	}
	defs := make([]string, len(models.ProductColumns))
	for i, c := range models.ProductColumns {
		defs[i] = c.Name + " " + columnTypes[c.Kind]
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}
