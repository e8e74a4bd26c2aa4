// Package ensemble implements a random forest regressor on top of the
// regression trees in sklearn/tree.
package ensemble

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/parallel"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/sklearn/tree"
)

// RandomForestRegressor averages bootstrap-trained regression trees.
type RandomForestRegressor struct {
	state *model.StateManager

	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	maxLeafNodes    int
	bootstrap       bool
	randomState     int64
	nJobs           int

	trees  []*tree.DecisionTreeRegressor
	logger log.Logger
}

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(f *RandomForestRegressor) { f.nEstimators = n } }

// WithMaxDepth limits the depth of every tree. Zero means unlimited.
func WithMaxDepth(d int) Option { return func(f *RandomForestRegressor) { f.maxDepth = d } }

// WithMinSamplesSplit sets min_samples_split for every tree.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForestRegressor) { f.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf for every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(f *RandomForestRegressor) { f.minSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features tried per split. Zero means all.
func WithMaxFeatures(n int) Option { return func(f *RandomForestRegressor) { f.maxFeatures = n } }

// WithMaxLeafNodes bounds the leaf count of every tree. Zero means unlimited.
func WithMaxLeafNodes(n int) Option {
	return func(f *RandomForestRegressor) { f.maxLeafNodes = n }
}

// WithBootstrap toggles bootstrap sampling of the training rows.
func WithBootstrap(b bool) Option { return func(f *RandomForestRegressor) { f.bootstrap = b } }

// WithRandomState seeds the forest. Tree i uses seed+i.
func WithRandomState(seed int64) Option {
	return func(f *RandomForestRegressor) { f.randomState = seed }
}

// WithNJobs bounds how many trees are fitted concurrently. Zero or less uses NumCPU.
func WithNJobs(n int) Option { return func(f *RandomForestRegressor) { f.nJobs = n } }

// NewRandomForestRegressor creates a forest with 100 trees and bootstrap sampling.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		state:           model.NewStateManager(),
		nEstimators:     100,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
		logger:          log.GetLoggerWithName("RandomForestRegressor"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit trains the forest.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return f.FitContext(context.Background(), X, y)
}

// FitContext trains the trees concurrently. The result does not depend on
// scheduling: each tree draws its bootstrap sample from its own seed.
func (f *RandomForestRegressor) FitContext(ctx context.Context, X, y mat.Matrix) error {
	const op = "RandomForestRegressor.Fit"

	if f.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.nEstimators)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry, _ := y.Dims(); ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}

	f.logger.Debug("fitting forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"n_estimators", f.nEstimators,
		"max_leaf_nodes", f.maxLeafNodes,
	)

	trees := make([]*tree.DecisionTreeRegressor, f.nEstimators)
	err := parallel.ForEach(ctx, f.nEstimators, f.nJobs, func(_ context.Context, i int) error {
		seed := f.randomState + int64(i)
		t := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(f.maxDepth),
			tree.WithMinSamplesSplit(f.minSamplesSplit),
			tree.WithMinSamplesLeaf(f.minSamplesLeaf),
			tree.WithMaxFeatures(f.maxFeatures),
			tree.WithMaxLeafNodes(f.maxLeafNodes),
			tree.WithRandomState(seed),
		)
		if err := t.FitSamples(X, y, f.sampleRows(r, seed)); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	f.trees = trees
	f.state.SetDimensions(c, r)
	f.state.SetFitted()
	return nil
}

// sampleRows draws n rows with replacement, or returns every row when
// bootstrap is off.
func (f *RandomForestRegressor) sampleRows(n int, seed int64) []int {
	rows := make([]int, n)
	if !f.bootstrap {
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	// separate stream from the tree's feature sampling
	rng := rand.New(rand.NewPCG(uint64(seed), ^uint64(seed)))
	for i := range rows {
		rows[i] = rng.IntN(n)
	}
	return rows
}

// Predict returns the mean of the tree predictions as an n×1 matrix.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := f.state.RequireFeatures("RandomForestRegressor.Predict", c); err != nil {
		return nil, err
	}

	preds := make([]mat.Matrix, len(f.trees))
	err := parallel.ForEach(context.Background(), len(f.trees), f.nJobs, func(_ context.Context, i int) error {
		p, err := f.trees[i].Predict(X)
		if err != nil {
			return err
		}
		preds[i] = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	// fixed summation order keeps the result independent of scheduling
	sum := make([]float64, r)
	col := make([]float64, r)
	for _, p := range preds {
		floats.Add(sum, mat.Col(col, 0, p))
	}
	floats.Scale(1/float64(len(preds)), sum)
	return mat.NewDense(r, 1, sum), nil
}

// Score returns R² of the prediction.
func (f *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// Estimators returns the fitted trees.
func (f *RandomForestRegressor) Estimators() []*tree.DecisionTreeRegressor {
	return append([]*tree.DecisionTreeRegressor(nil), f.trees...)
}

// IsFitted reports whether Fit has completed.
func (f *RandomForestRegressor) IsFitted() bool { return f.state.IsFitted() }

// GetParams returns the hyperparameters.
func (f *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.nEstimators,
		"max_depth":         f.maxDepth,
		"min_samples_split": f.minSamplesSplit,
		"min_samples_leaf":  f.minSamplesLeaf,
		"max_features":      f.maxFeatures,
		"max_leaf_nodes":    f.maxLeafNodes,
		"bootstrap":         f.bootstrap,
		"random_state":      f.randomState,
	}
}
