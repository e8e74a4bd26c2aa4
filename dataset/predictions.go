package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Predictions pairs each evaluation identifier with its predicted value,
// in evaluation row order.
type Predictions struct {
	IDColumn    string
	ValueColumn string
	IDs         []string
	Values      []float64
}

// Len returns the number of rows.
func (p Predictions) Len() int { return len(p.IDs) }

// Validate checks that identifiers and values line up.
func (p Predictions) Validate() error {
	if p.IDColumn == "" || p.ValueColumn == "" {
		return errors.NewValueError("Predictions", "column names must not be empty")
	}
	if p.IDColumn == p.ValueColumn {
		return errors.NewValueError("Predictions", fmt.Sprintf("column names must differ, both are %q", p.IDColumn))
	}
	if len(p.IDs) != len(p.Values) {
		return errors.NewDimensionError("Predictions", len(p.IDs), len(p.Values), 0)
	}
	return nil
}

// WritePredictions writes a two column CSV: identifier, prediction.
func WritePredictions(w io.Writer, p Predictions) error {
	if err := p.Validate(); err != nil {
		return err
	}
	// Values are formatted here; gota's float series prints fixed precision.
	values := make([]string, len(p.Values))
	for i, v := range p.Values {
		values[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	df := dataframe.New(
		series.New(p.IDs, series.String, p.IDColumn),
		series.New(values, series.String, p.ValueColumn),
	)
	return df.WriteCSV(w)
}

// SavePredictions writes the prediction file, creating its directory. The
// rows go to a temporary file in the same directory that is renamed to path
// once complete.
func SavePredictions(path string, p Predictions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := WritePredictions(tmp, p); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, fmt.Sprintf("rename into %s", path))
	}
	return nil
}
