// Package dataset reads schema-typed CSV files into tables and writes the
// prediction file.
package dataset

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/schema"
)

var utf8BOM = []byte("\ufeff")

// gota marks these cells as NaN elements whatever the load options say.
const gotaNaN = "NaN"

// ReadCSV reads a CSV stream whose header names columns declared in s.
// Cells equal to one of the schema's missing tokens become missing. A file
// may omit declared columns (the evaluation file has no target column) but
// must not contain undeclared ones. Numeric cells must be finite numbers.
func ReadCSV(r io.Reader, s *schema.Schema) (*table.Table, error) {
	const op = "ReadCSV"
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "missing header")
	}

	// The header is loaded as a data row so that gota keeps the raw names
	// instead of suffixing duplicates.
	raw := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if raw.Err != nil {
		return nil, errors.Wrap(raw.Err, "read csv")
	}
	if raw.Nrow() < 2 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no data rows")
	}

	names := raw.Names()
	cols := make([]table.Column, len(names))
	seen := make(map[string]struct{}, len(names))
	for j, key := range names {
		cells := raw.Col(key).Records()
		name := strings.TrimSpace(cells[0])
		k, ok := s.KindOf(name)
		if !ok {
			return nil, errors.NewValidationError("header", fmt.Sprintf("column is not declared in schema %s", s.Ref()), name)
		}
		if _, dup := seen[name]; dup {
			return nil, errors.NewValueError(op, fmt.Sprintf("duplicate header %q", name))
		}
		seen[name] = struct{}{}

		if k == table.Categorical {
			cols[j] = categoricalColumn(name, cells[1:], s)
			continue
		}
		if cols[j], err = numericColumn(name, cells[1:], s); err != nil {
			return nil, err
		}
	}
	return table.New(cols...)
}

func categoricalColumn(name string, cells []string, s *schema.Schema) *table.CategoricalColumn {
	values := make([]string, len(cells))
	missing := make([]bool, len(cells))
	for i, cell := range cells {
		if s.IsMissingToken(cell) {
			missing[i] = true
			continue
		}
		values[i] = strings.TrimSpace(cell)
	}
	return table.NewCategoricalColumn(name, values, missing)
}

// numericColumn converts the raw cells through a gota float series. Missing
// tokens are handed to gota as NaN; any other cell gota cannot parse is an
// error, as is a parsed NaN or infinity.
func numericColumn(name string, cells []string, s *schema.Schema) (*table.NumericColumn, error) {
	const op = "ReadCSV"
	text := make([]string, len(cells))
	missing := make([]bool, len(cells))
	for i, cell := range cells {
		if s.IsMissingToken(cell) {
			missing[i] = true
			text[i] = gotaNaN
			continue
		}
		text[i] = strings.TrimSpace(cell)
	}

	typed := series.New(text, series.Float, name)
	if typed.Err != nil {
		return nil, errors.Wrapf(typed.Err, "column %q", name)
	}
	values := typed.Float()
	nan := typed.IsNaN()
	for i, v := range values {
		if missing[i] {
			continue
		}
		// Data lines start at line 2.
		line := i + 2
		if nan[i] && !strings.EqualFold(text[i], gotaNaN) {
			return nil, errors.NewValueError(op, fmt.Sprintf("line %d column %q: cannot parse %q as a number", line, name, cells[i]))
		}
		if nan[i] || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValidationError(name, fmt.Sprintf("line %d: numeric cell must be finite", line), cells[i])
		}
	}
	return table.NewNumericColumn(name, values, missing), nil
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path string, s *schema.Schema) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f, s)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return t, nil
}
