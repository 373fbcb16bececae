package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTopLimit is the row count of the top discounted-and-rated list
// when the caller does not ask for one.
const DefaultTopLimit = 10

// FloatRange is an inclusive [Min, Max] bound.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IntRange is an inclusive [Min, Max] bound.
type IntRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Filter is the structured filter descriptor. Every option is optional;
// the zero Filter matches the whole catalog. MinRating, MaxRating and
// MinReviews only apply to rating-inclusive predicates.
type Filter struct {
	Brands          []string    `json:"brands,omitempty"`
	ExcludeBrands   []string    `json:"exclude_brands,omitempty"`
	MinDiscount     *int64      `json:"min_discount,omitempty"`
	MaxDiscount     *int64      `json:"max_discount,omitempty"`
	PriceBetween    *FloatRange `json:"price_between,omitempty"`
	MRPBetween      *FloatRange `json:"mrp_between,omitempty"`
	ImgCountBetween *IntRange   `json:"img_count_between,omitempty"`
	TitleILike      string      `json:"title_ilike,omitempty"`
	OnlyDiscounted  bool        `json:"only_discounted,omitempty"`
	OnlyNoDiscount  bool        `json:"only_no_discount,omitempty"`
	MinRating       *float64    `json:"min_rating,omitempty"`
	MaxRating       *float64    `json:"max_rating,omitempty"`
	MinReviews      *int64      `json:"min_reviews,omitempty"`
	TopLimit        *int        `json:"top_limit,omitempty"`
}

// Limit returns the requested top-list size clamped to [1, 1000], or
// DefaultTopLimit when none was requested. An explicit 0 means 1.
func (f Filter) Limit() int {
	if f.TopLimit == nil {
		return DefaultTopLimit
	}
	return ClampLimit(*f.TopLimit)
}

// ParseFilter builds a Filter from loosely typed caller input such as
// decoded JSON, YAML or query-string values. Unknown keys are ignored and
// a value of the wrong shape (a range that is not a two-element sequence,
// a bound that is not a number) leaves that option unset instead of
// failing the request.
func ParseFilter(raw map[string]any) Filter {
	var f Filter
	f.Brands = toStrings(raw["brands"])
	f.ExcludeBrands = toStrings(raw["exclude_brands"])
	f.MinDiscount = toInt(raw["min_discount"])
	f.MaxDiscount = toInt(raw["max_discount"])
	if lo, hi, ok := toPair(raw["price_between"]); ok {
		f.PriceBetween = &FloatRange{Min: lo, Max: hi}
	}
	if lo, hi, ok := toPair(raw["mrp_between"]); ok {
		f.MRPBetween = &FloatRange{Min: lo, Max: hi}
	}
	if lo, hi, ok := toPair(raw["img_count_between"]); ok {
		f.ImgCountBetween = &IntRange{Min: int64(lo), Max: int64(hi)}
	}
	if s, ok := raw["title_ilike"].(string); ok {
		f.TitleILike = strings.TrimSpace(s)
	}
	f.OnlyDiscounted = toBool(raw["only_discounted"])
	f.OnlyNoDiscount = toBool(raw["only_no_discount"])
	f.MinRating = toFloat(raw["min_rating"])
	f.MaxRating = toFloat(raw["max_rating"])
	f.MinReviews = toInt(raw["min_reviews"])
	if n := toInt(raw["top_limit"]); n != nil {
		limit := int(max(math.MinInt32, min(*n, math.MaxInt32)))
		f.TopLimit = &limit
	}
	return f
}

// DecodeFilterJSON parses a JSON object into a Filter. Only a document
// that is not a JSON object is an error; bad option values are dropped.
func DecodeFilterJSON(data []byte) (Filter, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Filter{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Filter{}, fmt.Errorf("invalid filters JSON: %w", err)
	}
	return ParseFilter(raw), nil
}

// DecodeFilterYAML parses a YAML mapping into a Filter.
func DecodeFilterYAML(data []byte) (Filter, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Filter{}, fmt.Errorf("invalid filters YAML: %w", err)
	}
	return ParseFilter(raw), nil
}

func toStrings(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) *float64 {
	if f, ok := number(v); ok {
		return &f
	}
	return nil
}

// toInt truncates toward zero, as integer bounds always have. Values
// beyond the int64 range saturate.
func toInt(v any) *int64 {
	if f, ok := number(v); ok {
		n := saturateInt(f)
		return &n
	}
	return nil
}

// saturateInt truncates f toward zero and pins it to the int64 range.
// f must not be NaN.
func saturateInt(f float64) int64 {
	switch {
	case f >= 1<<63:
		return math.MaxInt64
	case f < math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}

func toPair(v any) (float64, float64, bool) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []float64:
		for _, f := range t {
			items = append(items, f)
		}
	case []int:
		for _, n := range t {
			items = append(items, n)
		}
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			items = append(items, s)
		}
	default:
		return 0, 0, false
	}
	if len(items) != 2 {
		return 0, 0, false
	}
	lo, ok1 := number(items[0])
	hi, ok2 := number(items[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return lo, hi, true
}
