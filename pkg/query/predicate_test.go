package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

func ptr[T any](v T) *T { return &v }

func render(p Predicate) (string, []any) {
	return p.Render(sqldialect.Postgres, 0)
}

func TestBuildPredicate_EmptyIsTautology(t *testing.T) {
	t.Parallel()

	for _, rating := range []bool{false, true} {
		sql, args := render(BuildPredicate(Filter{}, rating))
		assert.Equal(t, "1=1", sql)
		assert.Empty(t, args)
	}
}

func TestBuildPredicate_BrandsIncludeAndExclude(t *testing.T) {
	t.Parallel()

	f := Filter{Brands: []string{"Acme", "O'Neill"}, ExcludeBrands: []string{"Acme"}}
	sql, args := render(BuildPredicate(f, false))
	assert.Equal(t, "brand IN ($1, $2) AND brand NOT IN ($3)", sql)
	assert.Equal(t, []any{"Acme", "O'Neill", "Acme"}, args)
}

func TestBuildPredicate_OnlyPresentBoundsEmitted(t *testing.T) {
	t.Parallel()

	sql, args := render(BuildPredicate(Filter{MinDiscount: ptr(int64(10))}, false))
	assert.Equal(t, "discount_percent >= $1", sql)
	assert.Equal(t, []any{int64(10)}, args)

	sql, args = render(BuildPredicate(Filter{MaxDiscount: ptr(int64(0))}, false))
	assert.Equal(t, "discount_percent <= $1", sql)
	assert.Equal(t, []any{int64(0)}, args)
}

func TestBuildPredicate_Ranges(t *testing.T) {
	t.Parallel()

	f := Filter{
		PriceBetween:    &FloatRange{Min: 100, Max: 500.5},
		MRPBetween:      &FloatRange{Min: 200, Max: 900},
		ImgCountBetween: &IntRange{Min: 1, Max: 4},
	}
	sql, args := render(BuildPredicate(f, false))
	assert.Equal(t, "price BETWEEN $1 AND $2 AND mrp BETWEEN $3 AND $4 AND img_count BETWEEN $5 AND $6", sql)
	assert.Equal(t, []any{100.0, 500.5, 200.0, 900.0, int64(1), int64(4)}, args)
}

func TestBuildPredicate_TitlePatternWrapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"shirt", "%shirt%"},
		{"shirt%", "shirt%"},
		{"sh_rt", "sh_rt"},
		{"%polo", "%polo"},
	}
	for _, tt := range tests {
		sql, args := render(BuildPredicate(Filter{TitleILike: tt.in}, false))
		assert.Equal(t, "title ILIKE $1", sql)
		assert.Equal(t, []any{tt.want}, args)
	}

	sql, _ := BuildPredicate(Filter{TitleILike: "x"}, false).Render(sqldialect.SQLite, 0)
	assert.Equal(t, "title LIKE ?", sql)
}

func TestBuildPredicate_NoDiscountWinsOverDiscounted(t *testing.T) {
	t.Parallel()

	sql, _ := render(BuildPredicate(Filter{OnlyDiscounted: true, OnlyNoDiscount: true}, false))
	assert.Equal(t, "price = mrp", sql)
	assert.NotContains(t, sql, "price < mrp")

	sql, _ = render(BuildPredicate(Filter{OnlyDiscounted: true}, false))
	assert.Equal(t, "price < mrp", sql)
}

func TestBuildPredicate_RatingOnlyInRatingVariant(t *testing.T) {
	t.Parallel()

	f := Filter{MinRating: ptr(4.0), MaxRating: ptr(4.8), MinReviews: ptr(int64(100)), Brands: []string{"Acme"}}

	sql, args := render(BuildPredicate(f, false))
	assert.Equal(t, "brand IN ($1)", sql)
	assert.Equal(t, []any{"Acme"}, args)

	sql, args = render(BuildPredicate(f, true))
	assert.Equal(t, "brand IN ($1) AND rating >= $2 AND rating <= $3 AND rating_total >= $4", sql)
	assert.Equal(t, []any{"Acme", 4.0, 4.8, int64(100)}, args)

	sql, _ = render(BuildPredicate(Filter{MinRating: ptr(3.0)}, false))
	assert.Equal(t, "1=1", sql)
}

func TestBuildPredicate_Idempotent(t *testing.T) {
	t.Parallel()

	f := Filter{
		Brands:         []string{"A", "B"},
		MinDiscount:    ptr(int64(5)),
		PriceBetween:   &FloatRange{Min: 1, Max: 2},
		TitleILike:     "tee",
		OnlyDiscounted: true,
		MinRating:      ptr(3.5),
	}
	for _, rating := range []bool{false, true} {
		sql1, args1 := render(BuildPredicate(f, rating))
		sql2, args2 := render(BuildPredicate(f, rating))
		assert.Equal(t, sql1, sql2)
		assert.Equal(t, args1, args2)
	}
}

func TestPredicate_RenderOffsetsPlaceholders(t *testing.T) {
	t.Parallel()

	p := BuildPredicate(Filter{Brands: []string{"A"}, MinDiscount: ptr(int64(1))}, false)
	sql, args := p.Render(sqldialect.Postgres, 2)
	assert.Equal(t, "brand IN ($3) AND discount_percent >= $4", sql)
	assert.Len(t, args, 2)
}

func TestPredicate_ValuesNeverInlined(t *testing.T) {
	t.Parallel()

	evil := "x'); DROP TABLE products; --"
	sql, args := render(BuildPredicate(Filter{Brands: []string{evil}, TitleILike: evil}, true))
	assert.NotContains(t, sql, "DROP")
	assert.Contains(t, args, evil)
}

func TestPredicate_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1=1", BuildPredicate(Filter{}, false).String())
	assert.Equal(t, "brand IN (?) [Acme]", BuildPredicate(Filter{Brands: []string{"Acme"}}, false).String())
	assert.Equal(t, "between", ClauseBetween.String())
}
