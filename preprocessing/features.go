package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/schema"
)

// DeriveFeatures appends one numeric column per definition, in definition
// order, keeping every existing column. Inputs must be numeric; a later
// definition may read an earlier derived column. A row with a missing input
// gets a missing derived cell.
func DeriveFeatures(t *table.Table, defs []schema.DerivedFeature) (*table.Table, error) {
	const op = "DeriveFeatures"

	out := t
	for _, d := range defs {
		if out.Has(d.Name) {
			return nil, errors.NewValueError(op, fmt.Sprintf("column %q already exists", d.Name))
		}
		inputs := make([]*table.NumericColumn, len(d.Inputs))
		for i, name := range d.Inputs {
			c, err := numericInput(out, op, name)
			if err != nil {
				return nil, err
			}
			inputs[i] = c
		}

		var (
			combine func(acc, v float64) float64
			initial float64
		)
		switch d.Op {
		case schema.OpProduct:
			combine, initial = func(acc, v float64) float64 { return acc * v }, 1
		case schema.OpSum:
			combine, initial = func(acc, v float64) float64 { return acc + v }, 0
		default:
			return nil, errors.NewValueError(op, fmt.Sprintf("unknown operation %q for %q", d.Op, d.Name))
		}

		values := make([]float64, out.Rows())
		missing := make([]bool, out.Rows())
		for row := range values {
			acc := initial
			for _, c := range inputs {
				v, ok := c.Value(row)
				if !ok {
					missing[row] = true
					acc = math.NaN()
					break
				}
				acc = combine(acc, v)
			}
			values[row] = acc
		}

		var err error
		if out, err = out.WithColumn(table.NewNumericColumn(d.Name, values, missing)); err != nil {
			return nil, err
		}
	}

	log.GetLoggerWithName("FeatureDeriver").Debug("features derived",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, out.Rows(),
		log.ColumnsKey, derivedNames(defs),
	)
	return out, nil
}

func derivedNames(defs []schema.DerivedFeature) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
