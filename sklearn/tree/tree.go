// Package tree implements a CART regression tree with squared-error splits.
package tree

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/parallel"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

const leaf = -1

// node is one entry of the flat tree. Leaves have left == right == leaf.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	samples   int
}

// DecisionTreeRegressor is a regression tree that minimizes the squared error.
type DecisionTreeRegressor struct {
	state *model.StateManager

	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	maxLeafNodes    int
	randomState     int64

	nodes  []node
	leaves int
	depth  int
}

// NewDecisionTreeRegressor creates a tree with min_samples_split=2,
// min_samples_leaf=1 and no depth or leaf limit.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit grows the tree on all rows of X.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	r, _ := X.Dims()
	samples := make([]int, r)
	for i := range samples {
		samples[i] = i
	}
	return t.FitSamples(X, y, samples)
}

// FitSamples grows the tree on the given row indices of X. Indices may repeat,
// which is how bootstrap samples are passed in.
func (t *DecisionTreeRegressor) FitSamples(X, y mat.Matrix, samples []int) error {
	const op = "DecisionTreeRegressor.Fit"

	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 || len(samples) == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	if err := t.validateParams(); err != nil {
		return err
	}
	for _, s := range samples {
		if s < 0 || s >= r {
			return errors.NewValueError(op, "sample index out of range")
		}
	}

	b := &builder{
		cols:         columns(X),
		y:            mat.Col(nil, 0, y),
		maxDepth:     t.maxDepth,
		minSplit:     t.minSamplesSplit,
		minLeaf:      t.minSamplesLeaf,
		maxFeatures:  t.maxFeatures,
		maxLeafNodes: t.maxLeafNodes,
		rng:          rand.New(rand.NewPCG(uint64(t.randomState), uint64(t.randomState))),
	}
	b.grow(samples)

	t.nodes = b.nodes
	t.leaves = b.leaves
	t.depth = b.depth
	t.state.SetDimensions(c, len(samples))
	t.state.SetFitted()
	return nil
}

func (t *DecisionTreeRegressor) validateParams() error {
	switch {
	case t.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", t.maxDepth)
	case t.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.minSamplesSplit)
	case t.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.minSamplesLeaf)
	case t.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", t.maxFeatures)
	case t.maxLeafNodes != 0 && t.maxLeafNodes < 2:
		return errors.NewValidationError("max_leaf_nodes", "must be 0 (unlimited) or >= 2", t.maxLeafNodes)
	}
	return nil
}

// Predict returns the leaf mean for each row of X as an n×1 matrix.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := t.state.RequireFeatures("DecisionTreeRegressor.Predict", c); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, 1000, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, t.predictRow(X, i))
		}
	})
	return out, nil
}

// predictRow walks the tree for row i of X.
func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	n := 0
	for t.nodes[n].left != leaf {
		nd := t.nodes[n]
		if X.At(i, nd.feature) <= nd.threshold {
			n = nd.left
		} else {
			n = nd.right
		}
	}
	return t.nodes[n].value
}

// Score returns R² of the prediction.
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// NLeaves returns the number of leaves of the fitted tree.
func (t *DecisionTreeRegressor) NLeaves() int { return t.leaves }

// Depth returns the depth of the fitted tree. A single leaf has depth 0.
func (t *DecisionTreeRegressor) Depth() int { return t.depth }

// NodeCount returns the number of nodes, internal and leaves.
func (t *DecisionTreeRegressor) NodeCount() int { return len(t.nodes) }

// IsFitted reports whether Fit has completed.
func (t *DecisionTreeRegressor) IsFitted() bool { return t.state.IsFitted() }

// GetParams returns the hyperparameters.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         t.maxDepth,
		"min_samples_split": t.minSamplesSplit,
		"min_samples_leaf":  t.minSamplesLeaf,
		"max_features":      t.maxFeatures,
		"max_leaf_nodes":    t.maxLeafNodes,
		"random_state":      t.randomState,
	}
}

// columns copies X column-major so split search reads contiguous memory.
func columns(X mat.Matrix) [][]float64 {
	_, c := X.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		cols[j] = mat.Col(nil, j, X)
	}
	return cols
}
