package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// 特徴量を平均0、標準偏差1に変換する。線形モデルの前段で使用する。
type StandardScaler struct {
	state *model.StateManager

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool

	mean  []float64
	scale []float64
}

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager(),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから各列の平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.mean = make([]float64, c)
	s.scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.MeanVariance(col, nil)
		// MeanVariance は不偏分散を返すので母分散に直す
		if r > 1 {
			variance *= float64(r-1) / float64(r)
		} else {
			variance = 0
		}

		if s.WithMean {
			s.mean[j] = mean
		}
		s.scale[j] = 1
		// 標準偏差がほぼ0の列はスケーリングしない（ゼロ除算を避ける）
		if s.WithStd && variance > 1e-16 {
			s.scale[j] = math.Sqrt(variance)
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, X)
	return result, nil
}

// FitTransform は学習と変換を一度に行う
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Mean は学習された各列の平均を返す
func (s *StandardScaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Scale は学習された各列のスケールを返す
func (s *StandardScaler) Scale() []float64 { return append([]float64(nil), s.scale...) }

// IsFitted はFit済みかどうかを返す
func (s *StandardScaler) IsFitted() bool { return s.state.IsFitted() }
