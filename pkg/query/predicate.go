package query

import (
	"fmt"
	"strings"

	"gitlab.connectwisedev.com/catalog-insights/pkg/sqldialect"
)

// ClauseKind enumerates the clause shapes a predicate can contain.
type ClauseKind int

const (
	ClauseIn ClauseKind = iota
	ClauseNotIn
	ClauseAtLeast
	ClauseAtMost
	ClauseBetween
	ClauseILike
	ClauseColumnsEqual
	ClauseColumnLess
)

var clauseKindNames = [...]string{
	ClauseIn:           "in",
	ClauseNotIn:        "not_in",
	ClauseAtLeast:      "at_least",
	ClauseAtMost:       "at_most",
	ClauseBetween:      "between",
	ClauseILike:        "ilike",
	ClauseColumnsEqual: "columns_equal",
	ClauseColumnLess:   "column_less",
}

func (k ClauseKind) String() string {
	if int(k) < len(clauseKindNames) {
		return clauseKindNames[k]
	}
	return fmt.Sprintf("ClauseKind(%d)", int(k))
}

// Clause is one conjunct. Column and Other are fixed identifiers chosen
// by BuildPredicate; caller values only ever travel in Args.
type Clause struct {
	Kind   ClauseKind
	Column string
	Other  string
	Args   []any
}

// Predicate is a conjunction of clauses.
type Predicate struct {
	Clauses []Clause
}

// BuildPredicate translates f into a predicate. With includeRating false
// the rating options are ignored, which is what catalog-wide aggregates
// use; the top discounted-and-rated list uses includeRating true.
func BuildPredicate(f Filter, includeRating bool) Predicate {
	var p Predicate
	add := func(c Clause) { p.Clauses = append(p.Clauses, c) }

	if len(f.Brands) > 0 {
		add(Clause{Kind: ClauseIn, Column: "brand", Args: stringArgs(f.Brands)})
	}
	if len(f.ExcludeBrands) > 0 {
		add(Clause{Kind: ClauseNotIn, Column: "brand", Args: stringArgs(f.ExcludeBrands)})
	}

	if f.MinDiscount != nil {
		add(Clause{Kind: ClauseAtLeast, Column: "discount_percent", Args: []any{*f.MinDiscount}})
	}
	if f.MaxDiscount != nil {
		add(Clause{Kind: ClauseAtMost, Column: "discount_percent", Args: []any{*f.MaxDiscount}})
	}
	if r := f.PriceBetween; r != nil {
		add(Clause{Kind: ClauseBetween, Column: "price", Args: []any{r.Min, r.Max}})
	}
	if r := f.MRPBetween; r != nil {
		add(Clause{Kind: ClauseBetween, Column: "mrp", Args: []any{r.Min, r.Max}})
	}
	if r := f.ImgCountBetween; r != nil {
		add(Clause{Kind: ClauseBetween, Column: "img_count", Args: []any{r.Min, r.Max}})
	}

	if pat := f.TitleILike; pat != "" {
		if !strings.ContainsAny(pat, "%_") {
			pat = "%" + pat + "%"
		}
		add(Clause{Kind: ClauseILike, Column: "title", Args: []any{pat}})
	}

	// only_no_discount wins when both toggles are set.
	if f.OnlyNoDiscount {
		add(Clause{Kind: ClauseColumnsEqual, Column: "price", Other: "mrp"})
	} else if f.OnlyDiscounted {
		add(Clause{Kind: ClauseColumnLess, Column: "price", Other: "mrp"})
	}

	if includeRating {
		if f.MinRating != nil {
			add(Clause{Kind: ClauseAtLeast, Column: "rating", Args: []any{*f.MinRating}})
		}
		if f.MaxRating != nil {
			add(Clause{Kind: ClauseAtMost, Column: "rating", Args: []any{*f.MaxRating}})
		}
		if f.MinReviews != nil {
			add(Clause{Kind: ClauseAtLeast, Column: "rating_total", Args: []any{*f.MinReviews}})
		}
	}
	return p
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// Render returns the predicate SQL and its bind arguments. offset is the
// number of arguments already bound earlier in the enclosing statement,
// so numbered placeholders continue from there. An empty predicate
// renders as 1=1.
func (p Predicate) Render(d sqldialect.Dialect, offset int) (string, []any) {
	if len(p.Clauses) == 0 {
		return "1=1", nil
	}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return d.Placeholder(offset + len(args))
	}

	parts := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		switch c.Kind {
		case ClauseIn, ClauseNotIn:
			marks := make([]string, len(c.Args))
			for i, a := range c.Args {
				marks[i] = next(a)
			}
			op := "IN"
			if c.Kind == ClauseNotIn {
				op = "NOT IN"
			}
			parts = append(parts, fmt.Sprintf("%s %s (%s)", c.Column, op, strings.Join(marks, ", ")))
		case ClauseAtLeast:
			parts = append(parts, c.Column+" >= "+next(c.Args[0]))
		case ClauseAtMost:
			parts = append(parts, c.Column+" <= "+next(c.Args[0]))
		case ClauseBetween:
			lo := next(c.Args[0])
			parts = append(parts, fmt.Sprintf("%s BETWEEN %s AND %s", c.Column, lo, next(c.Args[1])))
		case ClauseILike:
			parts = append(parts, d.ILike(c.Column, next(c.Args[0])))
		case ClauseColumnsEqual:
			parts = append(parts, c.Column+" = "+c.Other)
		case ClauseColumnLess:
			parts = append(parts, c.Column+" < "+c.Other)
		}
	}
	return strings.Join(parts, " AND "), args
}

// String renders with SQLite-style markers, for logs.
func (p Predicate) String() string {
	sql, args := p.Render(sqldialect.SQLite, 0)
	if len(args) == 0 {
		return sql
	}
	return fmt.Sprintf("%s %v", sql, args)
}
