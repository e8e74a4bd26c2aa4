// Package eda writes exploratory plots of the raw training table.
package eda

import (
	"math"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

const (
	heatmapPrefix = "plot_nulls_heatmap"
	otherPrefix   = "other_plots"
)

// Plotter renders PNG files into Dir. File names end with the run stamp
// passed to each method.
type Plotter struct {
	Dir    string
	Target string

	logger log.Logger
}

// NewPlotter creates a Plotter writing into dir. The target column is
// plotted against categories in OtherPlots.
func NewPlotter(dir, target string) *Plotter {
	return &Plotter{Dir: dir, Target: target, logger: log.GetLoggerWithName("Plotter")}
}

// nullGrid exposes the missing mask of a table as a heat map grid.
// Column c is the table column, row r the table row; 1 means missing.
type nullGrid struct {
	cols []table.Column
	rows int
}

func (g nullGrid) Dims() (c, r int) { return len(g.cols), g.rows }
func (g nullGrid) X(c int) float64 { return float64(c) }
func (g nullGrid) Y(r int) float64 { return float64(r) }
func (g nullGrid) Z(c, r int) float64 {
	// row 0 at the top, as in a table
	if g.cols[c].IsMissing(g.rows - 1 - r) {
		return 1
	}
	return 0
}

// NullsHeatmap plots the missing mask of t, one column per table column.
func (p *Plotter) NullsHeatmap(t *table.Table, stamp string) (string, error) {
	if t.Rows() == 0 || len(t.Names()) == 0 {
		return "", errors.NewValueError("NullsHeatmap", "empty table")
	}

	pl := plot.New()
	pl.Title.Text = "Missing values"
	pl.Y.Label.Text = "row"

	h := plotter.NewHeatMap(nullGrid{cols: t.Columns(), rows: t.Rows()}, palette.Heat(12, 1))
	h.Min, h.Max = 0, 1
	pl.Add(h)

	pl.NominalX(t.Names()...)
	pl.X.Tick.Label.Rotation = math.Pi / 2
	pl.X.Tick.Label.XAlign = draw.XRight
	pl.X.Tick.Label.YAlign = draw.YCenter
	pl.Y.Tick.Marker = plot.ConstantTicks(nil)

	path, err := p.path(heatmapPrefix, stamp)
	if err != nil {
		return "", err
	}
	if err := pl.Save(25*vg.Inch, 10*vg.Inch, path); err != nil {
		return "", errors.Wrapf(err, "save %s", path)
	}
	p.logger.Info("plot written", log.PathKey, path)
	return path, nil
}

// OtherPlots draws a 2×2 grid: SaleCondition and SaleType counts, and the
// target distribution per HouseStyle and per Foundation.
func (p *Plotter) OtherPlots(t *table.Table, stamp string) (string, error) {
	saleCondition, err := countPlot(t, "SaleCondition")
	if err != nil {
		return "", err
	}
	saleType, err := countPlot(t, "SaleType")
	if err != nil {
		return "", err
	}
	houseStyle, err := boxPlot(t, "HouseStyle", p.Target)
	if err != nil {
		return "", err
	}
	foundation, err := boxPlot(t, "Foundation", p.Target)
	if err != nil {
		return "", err
	}

	plots := [][]*plot.Plot{
		{saleCondition, saleType},
		{houseStyle, foundation},
	}
	img := vgimg.New(25*vg.Inch, 10*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2, Cols: 2,
		PadX: vg.Millimeter * 5, PadY: vg.Millimeter * 5,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	path, err := p.path(otherPrefix, stamp)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", path)
	}
	p.logger.Info("plot written", log.PathKey, path)
	return path, nil
}

func (p *Plotter) path(prefix, stamp string) (string, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create plot directory %s", p.Dir)
	}
	return filepath.Join(p.Dir, prefix+stamp+".png"), nil
}

// countPlot is a bar chart of label frequencies, labels sorted.
func countPlot(t *table.Table, column string) (*plot.Plot, error) {
	c, err := t.Categorical(column)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range c.Present() {
		counts[v]++
	}
	labels := sortedKeys(counts)
	if len(labels) == 0 {
		return nil, errors.NewEmptyColumnError("countPlot", column)
	}

	values := make(plotter.Values, len(labels))
	for i, l := range labels {
		values[i] = float64(counts[l])
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, errors.Wrapf(err, "bar chart %s", column)
	}

	pl := plot.New()
	pl.Title.Text = column
	pl.Y.Label.Text = "count"
	pl.Add(bars)
	pl.NominalX(labels...)
	return pl, nil
}

// boxPlot draws one box of target values per category of column.
func boxPlot(t *table.Table, column, target string) (*plot.Plot, error) {
	c, err := t.Categorical(column)
	if err != nil {
		return nil, err
	}
	y, err := t.Numeric(target)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]plotter.Values)
	for i := 0; i < t.Rows(); i++ {
		label, ok := c.Value(i)
		if !ok {
			continue
		}
		v, ok := y.Value(i)
		if !ok {
			continue
		}
		groups[label] = append(groups[label], v)
	}
	labels := sortedKeys(groups)
	if len(labels) == 0 {
		return nil, errors.NewEmptyColumnError("boxPlot", column)
	}

	pl := plot.New()
	pl.Title.Text = target + " by " + column
	pl.Y.Label.Text = target
	for i, l := range labels {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), groups[l])
		if err != nil {
			return nil, errors.Wrapf(err, "box plot %s=%s", column, l)
		}
		pl.Add(box)
	}
	pl.NominalX(labels...)
	return pl, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
