package query

import (
	"context"
	"fmt"

	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

// Table is a named query result with its column order.
type Table struct {
	Name    string
	Columns []string
	Rows    []map[string]any
}

// catalogQuery renders one report query. from is the table, where the
// rating-exclusive predicate.
type catalogQuery struct {
	name    string
	columns []string
	sql     func(d sqldialect.Dialect, from, where string) string
}

var catalogQueries = []catalogQuery{
	{
		name:    "row_counts",
		columns: []string{"products", "brands"},
		sql: func(_ sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT COUNT(*) AS products, COUNT(DISTINCT brand) AS brands
FROM %s WHERE %s`, from, where)
		},
	},
	{
		name:    "brand_avg_discount_top20",
		columns: []string{"brand", "items", "avg_discount_pct"},
		sql: func(d sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT brand, COUNT(*) AS items, %s AS avg_discount_pct
FROM %s WHERE %s
GROUP BY brand
HAVING COUNT(*) >= 5
ORDER BY avg_discount_pct DESC, brand ASC
LIMIT 20`, d.Round2("AVG(discount_percent)"), from, where)
		},
	},
	{
		name:    "ratings_coverage",
		columns: []string{"rated_items", "unrated_items", "avg_rating_nonzero"},
		sql: func(d sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT
  COALESCE(SUM(CASE WHEN rating_total > 0 THEN 1 ELSE 0 END), 0) AS rated_items,
  COALESCE(SUM(CASE WHEN rating_total = 0 THEN 1 ELSE 0 END), 0) AS unrated_items,
  COALESCE(%s, 0) AS avg_rating_nonzero
FROM %s WHERE %s`, d.Round2("AVG(NULLIF(rating, 0))"), from, where)
		},
	},
	{
		name:    "rating_distribution",
		columns: []string{"rating_band", "items"},
		sql: func(_ sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT rating_band, COUNT(*) AS items FROM (
  SELECT CASE
    WHEN rating = 0 THEN '0 (unrated)'
    WHEN rating < 2 THEN '1.0-1.9'
    WHEN rating < 3 THEN '2.0-2.9'
    WHEN rating < 4 THEN '3.0-3.9'
    WHEN rating < 4.5 THEN '4.0-4.49'
    ELSE '4.5-5.0'
  END AS rating_band
  FROM %s WHERE (%s) AND rating IS NOT NULL
) r
GROUP BY rating_band
ORDER BY items DESC, rating_band ASC`, from, where)
		},
	},
	{
		name:    "rating_by_discount_band",
		columns: []string{"band", "avg_rating_nonzero", "total_ratings", "items"},
		sql: func(d sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT band, %s AS avg_rating_nonzero, SUM(rating_total) AS total_ratings, COUNT(*) AS items
FROM (
  SELECT %s AS band, rating, rating_total
  FROM %s WHERE (%s) AND discount_percent IS NOT NULL
) bands
GROUP BY band
ORDER BY band`, d.Round2("AVG(NULLIF(rating, 0))"), discountBandSQL, from, where)
		},
	},
	{
		name:    "price_bucket_distribution",
		columns: []string{"price_bucket", "items", "avg_discount_pct"},
		sql: func(d sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT price_bucket, COUNT(*) AS items, %s AS avg_discount_pct FROM (
  SELECT CASE
    WHEN price < 500 THEN '<500'
    WHEN price < 1000 THEN '500-999'
    WHEN price < 2000 THEN '1000-1999'
    WHEN price < 5000 THEN '2000-4999'
    ELSE '5000+'
  END AS price_bucket, discount_percent
  FROM %s WHERE (%s) AND price IS NOT NULL
) p
GROUP BY price_bucket
ORDER BY items DESC, price_bucket ASC`, d.Round2("AVG(discount_percent)"), from, where)
		},
	},
	{
		name:    "image_count_vs_rating",
		columns: []string{"img_bucket", "items", "avg_rating_nonzero"},
		sql: func(d sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT img_bucket, COUNT(*) AS items, %s AS avg_rating_nonzero FROM (
  SELECT CASE
    WHEN img_count IS NULL OR img_count = 0 THEN '0'
    WHEN img_count <= 2 THEN '1-2'
    WHEN img_count <= 4 THEN '3-4'
    ELSE '5+'
  END AS img_bucket, rating
  FROM %s WHERE %s
) i
GROUP BY img_bucket
ORDER BY items DESC, img_bucket ASC`, d.Round2("AVG(NULLIF(rating, 0))"), from, where)
		},
	},
	{
		name:    "total_markdown_value",
		columns: []string{"total_markdown_value"},
		sql: func(d sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT COALESCE(%s, 0) AS total_markdown_value
FROM %s WHERE %s`, d.Round2("SUM(CASE WHEN mrp > price THEN mrp - price ELSE 0 END)"), from, where)
		},
	},
	{
		name:    "duplicate_titles_top50",
		columns: []string{"title", "dupes"},
		sql: func(_ sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT title, COUNT(*) AS dupes
FROM %s WHERE %s
GROUP BY title
HAVING COUNT(*) > 1
ORDER BY dupes DESC, title ASC
LIMIT 50`, from, where)
		},
	},
	{
		name:    "data_quality_nulls",
		columns: []string{"null_brands", "null_titles", "bad_price"},
		sql: func(_ sqldialect.Dialect, from, where string) string {
			return fmt.Sprintf(`SELECT
  COALESCE(SUM(CASE WHEN brand IS NULL OR brand = '' THEN 1 ELSE 0 END), 0) AS null_brands,
  COALESCE(SUM(CASE WHEN title IS NULL OR title = '' THEN 1 ELSE 0 END), 0) AS null_titles,
  COALESCE(SUM(CASE WHEN price IS NULL OR price <= 0 THEN 1 ELSE 0 END), 0) AS bad_price
FROM %s WHERE %s`, from, where)
		},
	},
}

// CatalogReportNames lists the report queries in execution order.
func CatalogReportNames() []string {
	names := make([]string, len(catalogQueries))
	for i, q := range catalogQueries {
		names[i] = q.name
	}
	return names
}

// CatalogReport runs the catalog health queries over the rating-exclusive
// predicate of f. It stops at the first failing query.
func (a *Analytics) CatalogReport(ctx context.Context, f Filter) ([]Table, error) {
	p := BuildPredicate(f, false)
	out := make([]Table, 0, len(catalogQueries))
	for _, cq := range catalogQueries {
		s := &stmt{d: a.d}
		sql := cq.sql(a.d, a.table.String(), s.where(p))
		rows, err := a.run(ctx, cq.name, sql, s.args)
		if err != nil {
			return out, err
		}
		out = append(out, Table{Name: cq.name, Columns: cq.columns, Rows: rows})
	}
	return out, nil
}
