package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// y = 1 + 2*x1 + 3*x2
func exactData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
		2, 1,
		3, 5,
	})
	y := mat.NewDense(6, 1, nil)
	for i := 0; i < 6; i++ {
		y.Set(i, 0, 1+2*X.At(i, 0)+3*X.At(i, 1))
	}
	return X, y
}

func TestLinearRegression_FitExact(t *testing.T) {
	X, y := exactData()
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.True(t, lr.IsFitted())
	assert.InDelta(t, 1.0, lr.Intercept(), 1e-9)
	w := lr.Weights()
	require.Len(t, w, 2)
	assert.InDelta(t, 2.0, w[0], 1e-9)
	assert.InDelta(t, 3.0, w[1], 1e-9)

	pred, err := lr.Predict(mat.NewDense(1, 2, []float64{10, 10}))
	require.NoError(t, err)
	assert.InDelta(t, 51.0, pred.At(0, 0), 1e-7)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 0.0, lr.Intercept())
	assert.InDelta(t, 2.0, lr.Weights()[0], 1e-12)
}

func TestLinearRegression_RidgeShrinks(t *testing.T) {
	X, y := exactData()

	ols := NewLinearRegression()
	require.NoError(t, ols.Fit(X, y))
	ridge := NewLinearRegression(WithAlpha(10))
	require.NoError(t, ridge.Fit(X, y))

	norm := func(w []float64) float64 {
		var s float64
		for _, v := range w {
			s += v * v
		}
		return s
	}
	assert.Less(t, norm(ridge.Weights()), norm(ols.Weights()))
	assert.Equal(t, 10.0, ridge.GetParams()["alpha"])
}

func TestLinearRegression_Errors(t *testing.T) {
	t.Run("not fitted", func(t *testing.T) {
		_, err := NewLinearRegression().Predict(mat.NewDense(1, 1, []float64{1}))
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("row mismatch", func(t *testing.T) {
		err := NewLinearRegression().Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("feature mismatch", func(t *testing.T) {
		X, y := exactData()
		lr := NewLinearRegression()
		require.NoError(t, lr.Fit(X, y))
		_, err := lr.Predict(mat.NewDense(1, 3, nil))
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("negative alpha", func(t *testing.T) {
		X, y := exactData()
		err := NewLinearRegression(WithAlpha(-1)).Fit(X, y)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("singular", func(t *testing.T) {
		X := mat.NewDense(3, 2, []float64{0, 1, 0, 2, 0, 3})
		y := mat.NewDense(3, 1, []float64{1, 2, 3})
		err := NewLinearRegression(WithFitIntercept(false)).Fit(X, y)
		assert.True(t, errors.Is(err, errors.ErrSingularMatrix))
	})
}
