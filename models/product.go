package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Product represents one catalog row as stored in the products table.
// Every field is nullable: a cell that fails coercion is stored as NULL.
type Product struct {
	ProductID       *int64   `json:"product_id"`
	StyleID         *int64   `json:"style_id"`
	Title           *string  `json:"title"`
	Brand           *string  `json:"brand"`
	Price           *float64 `json:"price"`
	MRP             *float64 `json:"mrp"`
	DiscountPercent *float64 `json:"discount_percent"`
	Rating          *float64 `json:"rating"`
	RatingTotal     *int64   `json:"rating_total"`
	ImgPrimary      *string  `json:"img_primary"`
	ImgCount        *int64   `json:"img_count"`
}

// ColumnKind is the storage type a CSV cell is coerced to.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindFloat
)

func (k ColumnKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// Column is a named, typed column of the products table.
type Column struct {
	Name string
	Kind ColumnKind
}

// ProductColumns lists the products table columns in insert order.
var ProductColumns = []Column{
	{"product_id", KindInt},
	{"style_id", KindInt},
	{"title", KindText},
	{"brand", KindText},
	{"price", KindFloat},
	{"mrp", KindFloat},
	{"discount_percent", KindFloat},
	{"rating", KindFloat},
	{"rating_total", KindInt},
	{"img_primary", KindText},
	{"img_count", KindInt},
}

// ColumnNames returns the names of ProductColumns in insert order.
func ColumnNames() []string {
	names := make([]string, len(ProductColumns))
	for i, c := range ProductColumns {
		names[i] = c.Name
	}
	return names
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableRef addresses a table as schema.table. Both parts are interpolated
// into SQL text, so they must be plain identifiers.
type TableRef struct {
	Schema string
	Name   string
}

// ParseTableRef parses "schema.table" or a bare "table".
func ParseTableRef(s string) (TableRef, error) {
	var ref TableRef
	if schema, name, ok := strings.Cut(s, "."); ok {
		ref = TableRef{Schema: schema, Name: name}
	} else {
		ref = TableRef{Name: s}
	}
	return ref, ref.Validate()
}

// Validate reports whether both parts are safe SQL identifiers.
func (t TableRef) Validate() error {
	if !identRe.MatchString(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	if t.Schema != "" && !identRe.MatchString(t.Schema) {
		return fmt.Errorf("invalid schema name %q", t.Schema)
	}
	return nil
}

func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
