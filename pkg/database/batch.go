package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gitlab.connectwisedev.com/catalog-insights/models"
	"gitlab.connectwisedev.com/catalog-insights/pkg/ingest"
	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

// Connector opens one dedicated connection per ingestion worker.
type Connector struct {
	driver    string
	dsn       string
	insertSQL string
}

// NewConnector prepares the INSERT statement for table.
func NewConnector(driver, dsn string, table models.TableRef) (*Connector, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	dialect, err := sqldialect.ForDriver(driver)
	if err != nil {
		return nil, err
	}
	return &Connector{driver: driver, dsn: dsn, insertSQL: InsertSQL(dialect, table)}, nil
}

// InsertSQL renders the parameterized single-row insert for table.
func InsertSQL(d sqldialect.Dialect, table models.TableRef) string {
	names := models.ColumnNames()
	ph := make([]string, len(names))
	for i := range names {
		ph[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(ph, ", "))
}

// Connect opens a fresh single-connection handle. The caller must Close it.
func (c *Connector) Connect(ctx context.Context) (ingest.BatchWriter, error) {
	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &batchWriter{db: db, insertSQL: c.insertSQL}, nil
}

type batchWriter struct {
	db        *sql.DB
	insertSQL string
}

// WriteBatch inserts rows in one transaction and commits it.
func (w *batchWriter) WriteBatch(ctx context.Context, rows [][]any) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (w *batchWriter) Close() error {
	return w.db.Close()
}
