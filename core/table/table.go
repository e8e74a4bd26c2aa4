package table

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Table is an ordered collection of uniquely named columns of equal length.
// Operations return new tables; columns are shared between tables because
// they are never modified.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New creates a table from columns. All columns must have the same length
// and distinct names.
func New(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c == nil {
			return nil, errors.NewValueError("table.New", fmt.Sprintf("column %d is nil", i))
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, errors.NewDimensionError(fmt.Sprintf("table.New(%s)", c.Name()), t.rows, c.Len(), 0)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, errors.NewValueError("table.New", fmt.Sprintf("duplicate column name %q", c.Name()))
		}
		t.index[c.Name()] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for tests and fixtures; it panics on error.
func MustNew(columns ...Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Shape returns rows and columns.
func (t *Table) Shape() (int, int) { return t.rows, len(t.columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Columns returns the columns in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Numeric returns the named column as numeric.
func (t *Table) Numeric(name string) (*NumericColumn, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError("Table.Numeric", name)
	}
	n, ok := c.(*NumericColumn)
	if !ok {
		return nil, errors.NewColumnKindError("Table.Numeric", name, Numeric.String(), c.Kind().String())
	}
	return n, nil
}

// Categorical returns the named column as categorical.
func (t *Table) Categorical(name string) (*CategoricalColumn, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError("Table.Categorical", name)
	}
	s, ok := c.(*CategoricalColumn)
	if !ok {
		return nil, errors.NewColumnKindError("Table.Categorical", name, Categorical.String(), c.Kind().String())
	}
	return s, nil
}

// WithColumn returns a table where c replaces the column of the same name,
// or is appended when no such column exists.
func (t *Table) WithColumn(c Column) (*Table, error) {
	cols := t.Columns()
	if i, ok := t.index[c.Name()]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns a table without the named columns. Every name must exist.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		if !t.Has(n) {
			return nil, errors.NewColumnNotFoundError("Table.Drop", n)
		}
		drop[n] = struct{}{}
	}
	cols := make([]Column, 0, len(t.columns))
	for _, c := range t.columns {
		if _, ok := drop[c.Name()]; !ok {
			cols = append(cols, c)
		}
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out, nil
}

// Select returns a table with exactly the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Table.Select", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// ToDense converts an all-numeric table without missing cells into a
// rows x columns matrix.
func (t *Table) ToDense() (*mat.Dense, error) {
	if t.rows == 0 || len(t.columns) == 0 {
		return nil, errors.ErrEmptyData
	}
	data := make([]float64, t.rows*len(t.columns))
	for j, c := range t.columns {
		n, ok := c.(*NumericColumn)
		if !ok {
			return nil, errors.NewColumnKindError("Table.ToDense", c.Name(), Numeric.String(), c.Kind().String())
		}
		for i := 0; i < t.rows; i++ {
			v, present := n.Value(i)
			if !present {
				return nil, errors.NewValueError("Table.ToDense", fmt.Sprintf("column %q has a missing value at row %d", c.Name(), i))
			}
			data[i*len(t.columns)+j] = v
		}
	}
	return mat.NewDense(t.rows, len(t.columns), data), nil
}
