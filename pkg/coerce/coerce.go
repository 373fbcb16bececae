// Package coerce converts raw CSV cells into typed column values.
//
// Coercion never fails: a cell that is missing, a recognised null token,
// or unparseable for its column kind collapses to nil, and only that cell
// is affected.
package coerce

import (
	"math"
	"strconv"
	"strings"

	"gitlab.connectwisedev.com/catalog-insights/models"
)

// nullTokens are the NA markers common dataframe CSV readers treat as
// missing by default.
var nullTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNull reports whether raw is a null marker.
func IsNull(raw string) bool {
	_, ok := nullTokens[raw]
	return ok
}

// Int parses raw as an integer. Integral decimals such as "12.0" are
// accepted; fractional values, overflow and garbage yield nil.
func Int(raw string) *int64 {
	s := strings.TrimSpace(raw)
	if IsNull(s) {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f >= 1<<63 || f < math.MinInt64 {
		return nil
	}
	n := int64(f)
	return &n
}

// Float parses raw as a finite float.
func Float(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if IsNull(s) {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Text returns raw unchanged unless it is a null marker.
func Text(raw string) *string {
	if IsNull(raw) || strings.EqualFold(raw, "nan") {
		return nil
	}
	return &raw
}

// Field coerces raw to kind and returns a driver-ready value: int64,
// float64, string or nil.
func Field(raw string, kind models.ColumnKind) any {
	switch kind {
	case models.KindInt:
		if v := Int(raw); v != nil {
			return *v
		}
	case models.KindFloat:
		if v := Float(raw); v != nil {
			return *v
		}
	default:
		if v := Text(raw); v != nil {
			return *v
		}
	}
	return nil
}
