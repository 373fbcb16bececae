package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

// QueryError is the structured failure returned by Query. Callers that
// render results check for it with errors.As before treating a result as
// rows.
type QueryError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *QueryError) Error() string { return e.Message }
func (e *QueryError) Unwrap() error { return e.Err }

// JSON renders the error as {"status":"error","message":...}.
func (e *QueryError) JSON() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"status":"error","message":"query failed"}`)
	}
	return b
}

func queryError(err error) *QueryError {
	return &QueryError{Status: "error", Message: err.Error(), Err: err}
}

// DBClient holds the database connection pool used for read queries.
type DBClient struct {
	db      *sql.DB
	driver  string
	dialect sqldialect.Dialect
}

// NewClient opens and pings a connection pool for driver and dsn.
func NewClient(ctx context.Context, driver, dsn string) (*DBClient, error) {
	dialect, err := sqldialect.ForDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if driver == "postgres" {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Connected to %s database.", driver)
	return &DBClient{db: db, driver: driver, dialect: dialect}, nil
}

// Close closes the database connection pool.
func (c *DBClient) Close() {
	if c.db != nil {
		c.db.Close()
		log.Printf("%s connection closed.", c.driver)
	}
}

// GetDB returns the underlying *sql.DB instance.
func (c *DBClient) GetDB() *sql.DB {
	return c.db
}

// Dialect returns the SQL dialect matching the driver.
func (c *DBClient) Dialect() sqldialect.Dialect {
	return c.dialect
}

// Query executes a read-only statement and returns one map per row keyed
// by column name. Every failure, including a rejected non-SELECT
// statement, is returned as a *QueryError.
func (c *DBClient) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if !isReadOnly(query) {
		return nil, &QueryError{Status: "error", Message: "only SELECT statements are allowed"}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, queryError(err)
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return out, nil
}

func isReadOnly(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	head, _, _ := strings.Cut(q, " ")
	head, _, _ = strings.Cut(head, "\n")
	switch strings.ToUpper(head) {
	case "SELECT", "WITH":
		return true
	}
	return false
}
