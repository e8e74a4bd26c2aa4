// Package table holds the in-memory columnar table the pipeline stages pass
// between each other. Columns are immutable from the outside: every
// operation that changes cells returns a new column or table.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Kind is the value kind of a column.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Categorical columns hold text labels.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "numeric":
		return Numeric, nil
	case "categorical":
		return Categorical, nil
	default:
		return Numeric, fmt.Errorf("unknown column kind %q", s)
	}
}

// Value is a single cell value used for fills.
type Value struct {
	Kind   Kind
	Number float64
	Label  string
}

// NumericValue wraps a number.
func NumericValue(v float64) Value { return Value{Kind: Numeric, Number: v} }

// CategoricalValue wraps a label.
func CategoricalValue(s string) Value { return Value{Kind: Categorical, Label: s} }

func (v Value) String() string {
	if v.Kind == Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Label
}

// Column is a named, typed sequence of cells that may be missing.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	IsMissing(i int) bool
	MissingCount() int
	// StringAt renders cell i; missing cells render as "".
	StringAt(i int) string
	// FillMissing returns a copy with every missing cell set to v.
	// The value kind must match the column kind.
	FillMissing(v Value) (Column, error)
}

// NumericColumn is a column of float64 values.
type NumericColumn struct {
	name    string
	values  []float64
	missing []bool
}

// NewNumericColumn copies values and the missing mask. A nil mask means no
// cell is missing. NaN cells are missing whatever the mask says.
func NewNumericColumn(name string, values []float64, missing []bool) *NumericColumn {
	c := &NumericColumn{
		name:    name,
		values:  append([]float64(nil), values...),
		missing: make([]bool, len(values)),
	}
	if missing != nil {
		copy(c.missing, missing)
	}
	for i, v := range c.values {
		if math.IsNaN(v) {
			c.missing[i] = true
		}
		if c.missing[i] {
			c.values[i] = math.NaN()
		}
	}
	return c
}

// NumericOf builds a numeric column where NaN marks a missing cell.
func NumericOf(name string, values ...float64) *NumericColumn {
	missing := make([]bool, len(values))
	for i, v := range values {
		missing[i] = math.IsNaN(v)
	}
	return NewNumericColumn(name, values, missing)
}

func (c *NumericColumn) Name() string         { return c.name }
func (c *NumericColumn) Kind() Kind           { return Numeric }
func (c *NumericColumn) Len() int             { return len(c.values) }
func (c *NumericColumn) IsMissing(i int) bool { return c.missing[i] }

func (c *NumericColumn) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// Value returns cell i and whether it is present.
func (c *NumericColumn) Value(i int) (float64, bool) {
	if c.missing[i] {
		return math.NaN(), false
	}
	return c.values[i], true
}

// Values returns a copy of the cells; missing cells are NaN.
func (c *NumericColumn) Values() []float64 {
	return append([]float64(nil), c.values...)
}

// Present returns the non-missing cells in row order.
func (c *NumericColumn) Present() []float64 {
	out := make([]float64, 0, len(c.values))
	for i, v := range c.values {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c *NumericColumn) StringAt(i int) string {
	if c.missing[i] {
		return ""
	}
	return strconv.FormatFloat(c.values[i], 'f', -1, 64)
}

func (c *NumericColumn) FillMissing(v Value) (Column, error) {
	if v.Kind != Numeric {
		return nil, fmt.Errorf("column %q is numeric, cannot fill with %s value %q", c.name, v.Kind, v.Label)
	}
	if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return nil, errors.NewValidationError("fill", fmt.Sprintf("column %q needs a finite fill value", c.name), v.Number)
	}
	out := NewNumericColumn(c.name, c.values, nil)
	for i, m := range c.missing {
		if m {
			out.values[i] = v.Number
		}
	}
	return out, nil
}

// CategoricalColumn is a column of text labels.
type CategoricalColumn struct {
	name    string
	values  []string
	missing []bool
}

// NewCategoricalColumn copies values and the missing mask. A nil mask means
// no cell is missing.
func NewCategoricalColumn(name string, values []string, missing []bool) *CategoricalColumn {
	c := &CategoricalColumn{
		name:    name,
		values:  append([]string(nil), values...),
		missing: make([]bool, len(values)),
	}
	if missing != nil {
		copy(c.missing, missing)
	}
	for i := range c.values {
		if c.missing[i] {
			c.values[i] = ""
		}
	}
	return c
}

// CategoricalOf builds a categorical column where "" marks a missing cell.
func CategoricalOf(name string, values ...string) *CategoricalColumn {
	missing := make([]bool, len(values))
	for i, v := range values {
		missing[i] = v == ""
	}
	return NewCategoricalColumn(name, values, missing)
}

func (c *CategoricalColumn) Name() string         { return c.name }
func (c *CategoricalColumn) Kind() Kind           { return Categorical }
func (c *CategoricalColumn) Len() int             { return len(c.values) }
func (c *CategoricalColumn) IsMissing(i int) bool { return c.missing[i] }

func (c *CategoricalColumn) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// Value returns cell i and whether it is present.
func (c *CategoricalColumn) Value(i int) (string, bool) {
	if c.missing[i] {
		return "", false
	}
	return c.values[i], true
}

// Values returns a copy of the cells; missing cells are "".
func (c *CategoricalColumn) Values() []string {
	return append([]string(nil), c.values...)
}

// Present returns the non-missing cells in row order.
func (c *CategoricalColumn) Present() []string {
	out := make([]string, 0, len(c.values))
	for i, v := range c.values {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c *CategoricalColumn) StringAt(i int) string {
	return c.values[i]
}

func (c *CategoricalColumn) FillMissing(v Value) (Column, error) {
	if v.Kind != Categorical {
		return nil, fmt.Errorf("column %q is categorical, cannot fill with %s value %v", c.name, v.Kind, v.Number)
	}
	out := NewCategoricalColumn(c.name, c.values, nil)
	for i, m := range c.missing {
		if m {
			out.values[i] = v.Label
		}
	}
	return out, nil
}
