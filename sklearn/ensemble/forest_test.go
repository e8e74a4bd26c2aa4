package ensemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func quadratic(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a := float64(i)
		b := float64((i * 7) % 13)
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.Set(i, 0, a*a+3*b)
	}
	return X, y
}

func TestRandomForestRegressor_Deterministic(t *testing.T) {
	X, y := quadratic(60)

	fit := func(jobs int) mat.Matrix {
		f := NewRandomForestRegressor(
			WithNEstimators(15),
			WithRandomState(42),
			WithMaxLeafNodes(8),
			WithNJobs(jobs),
		)
		require.NoError(t, f.Fit(X, y))
		pred, err := f.Predict(X)
		require.NoError(t, err)
		return pred
	}

	assert.True(t, mat.Equal(fit(1), fit(4)), "result must not depend on concurrency")
	assert.True(t, mat.Equal(fit(0), fit(0)))
}

func TestRandomForestRegressor_MaxLeafNodesBound(t *testing.T) {
	X, y := quadratic(80)
	f := NewRandomForestRegressor(WithNEstimators(10), WithMaxLeafNodes(5), WithRandomState(1))
	require.NoError(t, f.Fit(X, y))

	trees := f.Estimators()
	require.Len(t, trees, 10)
	for _, tr := range trees {
		assert.LessOrEqual(t, tr.NLeaves(), 5)
	}
}

func TestRandomForestRegressor_Fits(t *testing.T) {
	X, y := quadratic(100)
	f := NewRandomForestRegressor(WithNEstimators(20), WithRandomState(3))
	require.NoError(t, f.Fit(X, y))
	assert.True(t, f.IsFitted())

	score, err := f.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)
}

func TestRandomForestRegressor_NoBootstrapEqualsTree(t *testing.T) {
	X, y := quadratic(30)
	f := NewRandomForestRegressor(WithNEstimators(3), WithBootstrap(false))
	require.NoError(t, f.Fit(X, y))

	pred, err := f.Predict(X)
	require.NoError(t, err)
	// every tree sees every row with all features, so each one interpolates the data
	for i := 0; i < 30; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1e-9)
	}
}

func TestRandomForestRegressor_Errors(t *testing.T) {
	X, y := quadratic(10)

	_, err := NewRandomForestRegressor().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = NewRandomForestRegressor(WithNEstimators(0)).Fit(X, y)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	err = NewRandomForestRegressor(WithMaxLeafNodes(1)).Fit(X, y)
	assert.True(t, errors.As(err, &ve))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewRandomForestRegressor(WithNEstimators(4)).FitContext(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}
