package model_selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/linear"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func TestKFold_CoversEverySampleOnce(t *testing.T) {
	for _, kf := range []*KFold{NewKFold(3), NewKFold(10), NewShuffledKFold(4, 42)} {
		folds, err := kf.Split(mat.NewDense(23, 1, nil))
		require.NoError(t, err)
		require.Len(t, folds, kf.NSplits())

		seen := make(map[int]int)
		for _, f := range folds {
			assert.Len(t, f.TrainIndices, 23-len(f.TestIndices))
			test := make(map[int]bool)
			for _, i := range f.TestIndices {
				seen[i]++
				test[i] = true
			}
			for _, i := range f.TrainIndices {
				assert.False(t, test[i], "row %d in both train and test", i)
			}
		}
		assert.Len(t, seen, 23)
		for i, n := range seen {
			assert.Equal(t, 1, n, "row %d", i)
		}
	}
}

func TestKFold_ContiguousFolds(t *testing.T) {
	folds, err := NewKFold(3).Split(mat.NewDense(7, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, folds[0].TestIndices)
	assert.Equal(t, []int{3, 4}, folds[1].TestIndices)
	assert.Equal(t, []int{5, 6}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 5, 6}, folds[1].TrainIndices)
}

func TestKFold_Invalid(t *testing.T) {
	_, err := NewKFold(1).Split(mat.NewDense(5, 1, nil))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = NewKFold(6).Split(mat.NewDense(5, 1, nil))
	assert.Error(t, err)
}

func TestCrossValScore_Linear(t *testing.T) {
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := float64(i), float64((i*5)%7)
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.Set(i, 0, 4+0.5*a-2*b)
	}

	factory := func() model.Regressor { return linear.NewLinearRegression() }
	scores, err := CrossValScore(context.Background(), factory, X, y, NewKFold(5))
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.InDelta(t, 1.0, s, 1e-9)
	}

	parallelScores, err := CrossValScoreN(context.Background(), factory, X, y, NewKFold(5), 4)
	require.NoError(t, err)
	assert.Equal(t, scores, parallelScores)

	mean, std := MeanStd(scores)
	assert.InDelta(t, 1.0, mean, 1e-9)
	assert.InDelta(t, 0.0, std, 1e-9)
}

func TestCrossValScore_PropagatesFitError(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 0, 0, 0, 0, 0})
	y := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	factory := func() model.Regressor { return linear.NewLinearRegression(linear.WithFitIntercept(false)) }

	_, err := CrossValScore(context.Background(), factory, X, y, NewKFold(3))
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix))
}

func TestCrossValidate_FoldMetrics(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{10, 20, 30, 40, 50, 60})
	// Predicts 35 everywhere, so errors are known per fold.
	factory := func() model.Regressor { return constRegressor(35) }

	folds, err := CrossValidate(context.Background(), factory, X, y, NewKFold(2), 1)
	require.NoError(t, err)
	require.Len(t, folds, 2)

	// Fold 0 holds out 10, 20, 30: residuals 25, 15, 5.
	assert.InDelta(t, 15.0, folds[0].MAE, 1e-12)
	assert.InDelta(t, 17.07825127659933, folds[0].RMSE, 1e-9) // sqrt(875/3)
	assert.InDelta(t, 1-875.0/200.0, folds[0].R2, 1e-12)

	mean := MeanFoldScore(folds)
	assert.InDelta(t, 15.0, mean.MAE, 1e-12)
	assert.InDelta(t, (folds[0].R2+folds[1].R2)/2, mean.R2, 1e-12)
	assert.Equal(t, FoldScore{}, MeanFoldScore(nil))
}

func TestCrossValidate_ConstantTargetFold(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{7, 7, 7, 7})

	folds, err := CrossValidate(context.Background(), func() model.Regressor { return constRegressor(7) }, X, y, NewKFold(2), 1)
	require.NoError(t, err)
	for _, f := range folds {
		assert.Equal(t, 1.0, f.R2)
		assert.Equal(t, 0.0, f.RMSE)
	}

	scores, err := CrossValScore(context.Background(), func() model.Regressor { return constRegressor(8) }, X, y, NewKFold(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, scores)

	require.Len(t, warnings, 4)
	var w *errors.ConstantTargetWarning
	require.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, 2, w.Rows)
}

type constRegressor float64

func (c constRegressor) Fit(X, y mat.Matrix) error { return nil }

func (c constRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, float64(c))
	}
	return out, nil
}
