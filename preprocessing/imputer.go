package preprocessing

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// FillStrategy computes the value that replaces the missing cells of a
// column, using only the column's own non-missing cells. ok is false when
// the column has no non-missing cell.
type FillStrategy interface {
	FillValue(c table.Column) (v table.Value, ok bool, err error)
}

// MeanStrategy fills numeric columns with their arithmetic mean.
type MeanStrategy struct{}

// FillValue implements FillStrategy.
func (MeanStrategy) FillValue(c table.Column) (table.Value, bool, error) {
	n, isNumeric := c.(*table.NumericColumn)
	if !isNumeric {
		return table.Value{}, false, errors.NewColumnKindError("MeanStrategy", c.Name(), table.Numeric.String(), c.Kind().String())
	}
	present := n.Present()
	if len(present) == 0 {
		return table.Value{}, false, nil
	}
	return table.NumericValue(stat.Mean(present, nil)), true, nil
}

// ModeStrategy fills categorical columns with their most frequent label.
// Among equally frequent labels the one that appears first wins.
type ModeStrategy struct{}

// FillValue implements FillStrategy.
func (ModeStrategy) FillValue(c table.Column) (table.Value, bool, error) {
	s, isCategorical := c.(*table.CategoricalColumn)
	if !isCategorical {
		return table.Value{}, false, errors.NewColumnKindError("ModeStrategy", c.Name(), table.Categorical.String(), c.Kind().String())
	}
	counts := make(map[string]int)
	var order []string
	for _, label := range s.Present() {
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}
	if len(order) == 0 {
		return table.Value{}, false, nil
	}
	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return table.CategoricalValue(best), true, nil
}

// DefaultStrategies maps each column kind to its blanket fill strategy.
func DefaultStrategies() map[table.Kind]FillStrategy {
	return map[table.Kind]FillStrategy{
		table.Numeric:     MeanStrategy{},
		table.Categorical: ModeStrategy{},
	}
}

// FillNamedColumnsWithConstant replaces every missing cell of the named
// columns with constant. For numeric columns the constant must parse as a
// finite number. Every named column must exist.
func FillNamedColumnsWithConstant(t *table.Table, columns []string, constant string) (*table.Table, error) {
	const op = "FillNamedColumnsWithConstant"
	logger := log.GetLoggerWithName("Imputer")

	out := t
	for _, name := range columns {
		c, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError(op, name)
		}
		if c.MissingCount() == 0 {
			continue
		}

		v := table.CategoricalValue(constant)
		if c.Kind() == table.Numeric {
			f, err := strconv.ParseFloat(constant, 64)
			if err != nil {
				return nil, errors.NewValidationError(name, "numeric column needs a numeric fill constant", constant)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, errors.NewValidationError(name, "numeric fill constant must be finite", constant)
			}
			v = table.NumericValue(f)
		}

		missing := c.MissingCount()
		filled, err := c.FillMissing(v)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		if out, err = out.WithColumn(filled); err != nil {
			return nil, err
		}
		logger.Debug("constant fill", log.ColumnKey, name, log.MissingKey, missing, "value", constant)
	}
	return out, nil
}

// FillAllRemainingMissing fills every column that still has missing cells
// with the mean (numeric) or mode (categorical) of this table's values.
//
// A column without any non-missing cell is left unchanged and an
// EmptyColumnWarning is raised through errors.Warn.
func FillAllRemainingMissing(t *table.Table) (*table.Table, error) {
	return FillAllRemainingMissingWith(t, DefaultStrategies())
}

// FillAllRemainingMissingWith is FillAllRemainingMissing with a custom
// strategy per column kind.
func FillAllRemainingMissingWith(t *table.Table, strategies map[table.Kind]FillStrategy) (*table.Table, error) {
	const op = "FillAllRemainingMissing"
	logger := log.GetLoggerWithName("Imputer")

	out := t
	filledColumns := 0
	for _, c := range t.Columns() {
		missing := c.MissingCount()
		if missing == 0 {
			continue
		}
		strategy, ok := strategies[c.Kind()]
		if !ok {
			return nil, errors.NewValueError(op, fmt.Sprintf("no fill strategy for %s column %q", c.Kind(), c.Name()))
		}
		v, ok, err := strategy.FillValue(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			errors.Warn(errors.NewEmptyColumnWarning(op, c.Name(), c.Len()))
			continue
		}
		filled, err := c.FillMissing(v)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		if out, err = out.WithColumn(filled); err != nil {
			return nil, err
		}
		filledColumns++
		logger.Debug("blanket fill", log.ColumnKey, c.Name(), log.MissingKey, missing, "value", v.String())
	}
	logger.Info("missing values filled",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, t.Rows(),
		"columns_filled", filledColumns,
	)
	return out, nil
}
