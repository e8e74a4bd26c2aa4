package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/parallel"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// LinearRegression は線形回帰モデル（alpha > 0 のときはリッジ回帰）
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool
	alpha        float64

	weights   *mat.VecDense // 重み（係数）
	intercept float64       // 切片
}

// NewLinearRegression は新しい線形回帰モデルを作成する
//
//	lr := linear.NewLinearRegression(linear.WithAlpha(1.0))
//	err := lr.Fit(X, y)
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
// 正規方程式 (X^T X + αI) w = X^T y をコレスキー分解で解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	const op = "LinearRegression.Fit"

	// 入力の検証
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	if lr.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", lr.alpha)
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	p := c + offset

	// 切片項のために X の先頭に 1 の列を追加する
	design := mat.NewDense(r, p, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000

	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	// X^T X（対称行列）
	var xtx mat.SymDense
	xtx.SymOuterK(1, design.T())

	// リッジ項。切片には罰則をかけない
	if lr.alpha > 0 {
		for j := offset; j < p; j++ {
			xtx.SetSym(j, j, xtx.At(j, j)+lr.alpha)
		}
	}

	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), yVec)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok || chol.Cond() > mat.ConditionTolerance {
		return errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}

	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}
	if err := errors.CheckValues(op, w.RawVector().Data); err != nil {
		return err
	}

	// 切片と重みを分離
	lr.intercept = 0
	if offset == 1 {
		lr.intercept = w.AtVec(0)
	}
	lr.weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.weights.SetVec(j, w.AtVec(j+offset))
	}

	lr.state.SetDimensions(c, r)
	lr.state.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if err := lr.state.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	// 予測: y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}

	return predictions, nil
}

// Weights は学習された重み（係数）を返す
func (lr *LinearRegression) Weights() []float64 {
	if lr.weights == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.weights)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// IsFitted はFit済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool { return lr.state.IsFitted() }

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, yPred)
}

// GetParams returns the model's hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
		"alpha":         lr.alpha,
	}
}
