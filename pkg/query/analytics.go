// Package query turns filter descriptors into parameterized SQL and runs
// the fixed family of catalog analytics queries over the products table.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gitlab.connectwisedev.com/catalog-insights/models"
	"gitlab.connectwisedev.com/catalog-insights/pkg/metrics"
	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

const (
	maxTopLimit  = 1000
	brandTopN    = 10
	fullPriceSQL = "SUM(CASE WHEN price = mrp THEN 1 ELSE 0 END)"
)

// Querier executes a read-only statement and returns rows keyed by column
// name. The analytics layer depends on nothing else from the database.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// KPIs is the single-row summary of the filtered catalog.
type KPIs struct {
	AvgPrice        float64 `json:"avg_price"`
	AvgMRP          float64 `json:"avg_mrp"`
	AvgDiscountPct  float64 `json:"avg_discount_pct"`
	NoDiscountItems int64   `json:"no_discount_items"`
	Products        int64   `json:"products"`
}

// BrandShare is one brand's item count and share of the filtered total.
type BrandShare struct {
	Brand    string  `json:"brand"`
	Items    int64   `json:"items"`
	SharePct float64 `json:"share_pct"`
}

// Band is one discount histogram bucket.
type Band struct {
	Band  string `json:"band"`
	Items int64  `json:"items"`
}

// Analytics runs catalog queries against one table. It keeps no state
// between calls and is safe for concurrent use.
type Analytics struct {
	q       Querier
	d       sqldialect.Dialect
	table   models.TableRef
	metrics *metrics.Registry
}

// NewAnalytics returns an Analytics over table. A nil registry gets a
// private one.
func NewAnalytics(q Querier, d sqldialect.Dialect, table models.TableRef, reg *metrics.Registry) (*Analytics, error) {
	if q == nil || d == nil {
		return nil, errors.New("querier and dialect are required")
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Analytics{q: q, d: d, table: table, metrics: reg}, nil
}

// stmt accumulates bind arguments while a statement is assembled so that
// numbered placeholders stay in sequence across repeated predicates.
type stmt struct {
	d    sqldialect.Dialect
	args []any
}

func (s *stmt) where(p Predicate) string {
	sql, args := p.Render(s.d, len(s.args))
	s.args = append(s.args, args...)
	return sql
}

func (a *Analytics) run(ctx context.Context, name, sql string, args []any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := a.q.Query(ctx, sql, args...)
	a.metrics.QueryLatencySec.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.QueryErrors.WithLabelValues(name).Inc()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rows, nil
}

// CoreKPIs returns averages rounded to two decimals and item counts. With
// no matching rows every field is zero.
func (a *Analytics) CoreKPIs(ctx context.Context, p Predicate) (KPIs, error) {
	s := &stmt{d: a.d}
	sql := fmt.Sprintf(`SELECT
  COALESCE(%s, 0) AS avg_price,
  COALESCE(%s, 0) AS avg_mrp,
  COALESCE(%s, 0) AS avg_discount_pct,
  COALESCE(%s, 0) AS no_discount_items,
  COUNT(*) AS products
FROM %s
WHERE %s`,
		a.d.Round2("AVG(price)"), a.d.Round2("AVG(mrp)"), a.d.Round2("AVG(discount_percent)"),
		fullPriceSQL, a.table, s.where(p))

	rows, err := a.run(ctx, "core_kpis", sql, s.args)
	if err != nil {
		return KPIs{}, err
	}
	if len(rows) == 0 {
		return KPIs{}, nil
	}
	r := rows[0]
	return KPIs{
		AvgPrice:        floatOf(r["avg_price"]),
		AvgMRP:          floatOf(r["avg_mrp"]),
		AvgDiscountPct:  floatOf(r["avg_discount_pct"]),
		NoDiscountItems: intOf(r["no_discount_items"]),
		Products:        intOf(r["products"]),
	}, nil
}

// BrandConcentration returns the ten largest brands of the filtered set
// with their share of it in percent.
func (a *Analytics) BrandConcentration(ctx context.Context, p Predicate) ([]BrandShare, error) {
	s := &stmt{d: a.d}
	inner := s.where(p)
	total := s.where(p)
	sql := fmt.Sprintf(`SELECT t.brand AS brand, t.items AS items,
  CASE WHEN total.s > 0 THEN %s ELSE 0 END AS share_pct
FROM (
  SELECT brand, COUNT(*) AS items
  FROM %s
  WHERE %s
  GROUP BY brand
) t
CROSS JOIN (
  SELECT COUNT(*) AS s
  FROM %s
  WHERE %s
) total
ORDER BY t.items DESC, t.brand ASC
LIMIT %d`,
		a.d.Round2("100.0 * t.items / total.s"), a.table, inner, a.table, total, brandTopN)

	rows, err := a.run(ctx, "brand_concentration", sql, s.args)
	if err != nil {
		return nil, err
	}
	out := make([]BrandShare, 0, len(rows))
	for _, r := range rows {
		out = append(out, BrandShare{
			Brand:    stringOf(r["brand"]),
			Items:    intOf(r["items"]),
			SharePct: floatOf(r["share_pct"]),
		})
	}
	return out, nil
}

// discountBandSQL buckets discount_percent; each bucket is closed on its
// low end, so exactly 20 lands in 20-40%.
const discountBandSQL = `CASE
    WHEN discount_percent = 0 THEN '0%'
    WHEN discount_percent < 20 THEN '0-20%'
    WHEN discount_percent < 40 THEN '20-40%'
    WHEN discount_percent < 60 THEN '40-60%'
    ELSE '60%+'
  END`

// DiscountBands returns the non-empty discount buckets, largest first.
// Rows without a discount_percent are not counted in any bucket.
func (a *Analytics) DiscountBands(ctx context.Context, p Predicate) ([]Band, error) {
	s := &stmt{d: a.d}
	sql := fmt.Sprintf(`SELECT band, COUNT(*) AS items FROM (
  SELECT %s AS band
  FROM %s
  WHERE (%s) AND discount_percent IS NOT NULL
) b
GROUP BY band
ORDER BY items DESC, band ASC`, discountBandSQL, a.table, s.where(p))

	rows, err := a.run(ctx, "discount_bands", sql, s.args)
	if err != nil {
		return nil, err
	}
	out := make([]Band, 0, len(rows))
	for _, r := range rows {
		out = append(out, Band{Band: stringOf(r["band"]), Items: intOf(r["items"])})
	}
	return out, nil
}

// ClampLimit bounds a requested list size to [1, 1000].
func ClampLimit(n int) int {
	return max(1, min(n, maxTopLimit))
}

// TopDiscountedRated lists reviewed items by discount descending, then
// price ascending. p should be the rating-inclusive predicate.
func (a *Analytics) TopDiscountedRated(ctx context.Context, p Predicate, limit int) ([]models.Product, error) {
	s := &stmt{d: a.d}
	sql := fmt.Sprintf(`SELECT %s
FROM %s
WHERE (%s) AND rating_total > 0
ORDER BY discount_percent IS NULL, discount_percent DESC, price ASC
LIMIT %d`, strings.Join(models.ColumnNames(), ", "), a.table, s.where(p), ClampLimit(limit))

	rows, err := a.run(ctx, "top_discounted_rated", sql, s.args)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Product{
			ProductID:       optInt(r["product_id"]),
			StyleID:         optInt(r["style_id"]),
			Title:           optString(r["title"]),
			Brand:           optString(r["brand"]),
			Price:           optFloat(r["price"]),
			MRP:             optFloat(r["mrp"]),
			DiscountPercent: optFloat(r["discount_percent"]),
			Rating:          optFloat(r["rating"]),
			RatingTotal:     optInt(r["rating_total"]),
			ImgPrimary:      optString(r["img_primary"]),
			ImgCount:        optInt(r["img_count"]),
		})
	}
	return out, nil
}

// floatOf reads a numeric cell, treating NULL, NaN and garbage as 0.
func floatOf(v any) float64 {
	if f := optFloat(v); f != nil {
		return *f
	}
	return 0
}

func intOf(v any) int64 {
	if n := optInt(v); n != nil {
		return *n
	}
	return 0
}

func stringOf(v any) string {
	if s := optString(v); s != nil {
		return *s
	}
	return ""
}

func optFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func optInt(v any) *int64 {
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n = saturateInt(t)
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(t, 64)
			if ferr != nil || math.IsNaN(f) {
				return nil
			}
			i = saturateInt(f)
		}
		n = i
	default:
		return nil
	}
	return &n
}

func optString(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case []byte:
		s := string(t)
		return &s
	default:
		s := fmt.Sprint(t)
		return &s
	}
}
