package model_selection

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/parallel"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// FoldScore holds the held-out metrics of one fold.
type FoldScore struct {
	R2   float64
	RMSE float64
	MAE  float64
}

// CrossValScore fits a fresh regressor per fold and returns the R² of each
// fold's held-out rows, in fold order. Folds run one at a time.
func CrossValScore(ctx context.Context, factory model.RegressorFactory, X, y mat.Matrix, cv Splitter) ([]float64, error) {
	return CrossValScoreN(ctx, factory, X, y, cv, 1)
}

// CrossValScoreN is CrossValScore with up to nJobs folds fitted concurrently.
func CrossValScoreN(ctx context.Context, factory model.RegressorFactory, X, y mat.Matrix, cv Splitter, nJobs int) ([]float64, error) {
	folds, err := CrossValidate(ctx, factory, X, y, cv, nJobs)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(folds))
	for i, f := range folds {
		scores[i] = f.R2
	}
	return scores, nil
}

// CrossValidate fits a fresh regressor per fold, with up to nJobs folds in
// flight, and scores each fold's held-out rows.
//
// A fold whose held-out target is constant has no defined R²; it scores 1
// when the predictions match exactly and 0 otherwise, and a
// ConstantTargetWarning is raised through errors.Warn.
func CrossValidate(ctx context.Context, factory model.RegressorFactory, X, y mat.Matrix, cv Splitter, nJobs int) ([]FoldScore, error) {
	const op = "CrossValScore"

	r, _ := X.Dims()
	if ry, _ := y.Dims(); ry != r {
		return nil, errors.NewDimensionError(op, r, ry, 0)
	}
	folds, err := cv.Split(X)
	if err != nil {
		return nil, err
	}

	scores := make([]FoldScore, len(folds))
	err = parallel.ForEach(ctx, len(folds), nJobs, func(_ context.Context, i int) error {
		fold := folds[i]
		trainX, trainY := subset(X, y, fold.TrainIndices)
		testX, testY := subset(X, y, fold.TestIndices)

		m := factory()
		if err := m.Fit(trainX, trainY); err != nil {
			return errors.Wrapf(err, "fold %d training failed", i)
		}
		pred, err := m.Predict(testX)
		if err != nil {
			return errors.Wrapf(err, "fold %d prediction failed", i)
		}
		if err := errors.CheckMatrix(op, pred); err != nil {
			return errors.Wrapf(err, "fold %d prediction failed", i)
		}
		score, err := scoreFold(op, i, testY, pred)
		if err != nil {
			return errors.Wrapf(err, "fold %d scoring failed", i)
		}
		scores[i] = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func scoreFold(op string, fold int, yTrue *mat.Dense, yPred mat.Matrix) (FoldScore, error) {
	var s FoldScore
	var err error
	if s.RMSE, err = metrics.RMSEMatrix(yTrue, yPred); err != nil {
		return s, err
	}
	if s.MAE, err = metrics.MAEMatrix(yTrue, yPred); err != nil {
		return s, err
	}

	truth := yTrue.RawMatrix().Data
	if floats.Min(truth) == floats.Max(truth) {
		if s.RMSE == 0 {
			s.R2 = 1
		}
		errors.Warn(errors.NewConstantTargetWarning(op, fold, len(truth), s.R2))
		return s, nil
	}
	s.R2, err = metrics.R2ScoreMatrix(yTrue, yPred)
	return s, err
}

// MeanFoldScore averages each metric over the folds.
func MeanFoldScore(folds []FoldScore) FoldScore {
	if len(folds) == 0 {
		return FoldScore{}
	}
	var sum FoldScore
	for _, f := range folds {
		sum.R2 += f.R2
		sum.RMSE += f.RMSE
		sum.MAE += f.MAE
	}
	n := float64(len(folds))
	return FoldScore{R2: sum.R2 / n, RMSE: sum.RMSE / n, MAE: sum.MAE / n}
}

// MeanStd returns the mean and population standard deviation of scores.
func MeanStd(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	mean, std = stat.PopMeanStdDev(scores, nil)
	return mean, std
}

// subset copies the given rows of X and y.
func subset(X, y mat.Matrix, rows []int) (*mat.Dense, *mat.Dense) {
	_, c := X.Dims()
	subX := mat.NewDense(len(rows), c, nil)
	subY := mat.NewDense(len(rows), 1, nil)
	for i, row := range rows {
		for j := 0; j < c; j++ {
			subX.Set(i, j, X.At(row, j))
		}
		subY.Set(i, 0, y.At(row, 0))
	}
	return subX, subY
}
