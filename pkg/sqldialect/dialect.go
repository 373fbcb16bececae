// Package sqldialect isolates the few places where the SQL we emit
// differs between Postgres and SQLite.
package sqldialect

import (
	"fmt"
	"strconv"
)

// Dialect renders driver-specific SQL fragments.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// ILike renders a case-insensitive pattern match of column against a bound pattern.
	ILike(column, placeholder string) string
	// Round2 rounds expr to two decimals and yields a float.
	Round2(expr string) string
}

type postgres struct{}

func (postgres) Name() string             { return "postgres" }
func (postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgres) ILike(column, ph string) string {
	return column + " ILIKE " + ph
}
func (postgres) Round2(expr string) string {
	return fmt.Sprintf("CAST(ROUND(CAST(%s AS NUMERIC), 2) AS DOUBLE PRECISION)", expr)
}

type sqlite struct{}

func (sqlite) Name() string           { return "sqlite" }
func (sqlite) Placeholder(int) string { return "?" }

// SQLite's LIKE is already case-insensitive for ASCII.
func (sqlite) ILike(column, ph string) string { return column + " LIKE " + ph }
func (sqlite) Round2(expr string) string      { return "ROUND(" + expr + ", 2)" }

var (
	Postgres Dialect = postgres{}
	SQLite   Dialect = sqlite{}
)

// ForDriver maps a database/sql driver name to its dialect.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return nil, fmt.Errorf("no SQL dialect for driver %q", driver)
}
