package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/linear"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/preprocessing"
	"github.com/YuminosukeSato/houseprice/sklearn/ensemble"
)

// NewRegressorFactory returns a factory for the regressor described by cfg.
// Every call of the factory builds a fresh, unfitted model.
func NewRegressorFactory(cfg config.ModelConfig) (model.RegressorFactory, error) {
	switch cfg.Kind {
	case config.ModelRandomForest:
		rf := cfg.RandomForest
		return func() model.Regressor {
			return ensemble.NewRandomForestRegressor(
				ensemble.WithNEstimators(rf.NEstimators),
				ensemble.WithMaxLeafNodes(rf.MaxLeafNodes),
				ensemble.WithMaxDepth(rf.MaxDepth),
				ensemble.WithMinSamplesSplit(rf.MinSamplesSplit),
				ensemble.WithMinSamplesLeaf(rf.MinSamplesLeaf),
				ensemble.WithMaxFeatures(rf.MaxFeatures),
				ensemble.WithBootstrap(rf.Bootstrap),
				ensemble.WithRandomState(rf.RandomState),
			)
		}, nil
	case config.ModelLinear:
		lc := cfg.Linear
		return func() model.Regressor {
			lr := linear.NewLinearRegression(
				linear.WithFitIntercept(lc.FitIntercept),
				linear.WithAlpha(lc.Alpha),
			)
			if !lc.Standardize {
				return lr
			}
			return &ScaledRegressor{Scaler: preprocessing.NewStandardScalerDefault(), Model: lr}
		}, nil
	default:
		return nil, errors.NewValidationError("model.kind", "unknown model kind", cfg.Kind)
	}
}

// ScaledRegressor standardizes features before the wrapped model. The scaler
// is fitted on the rows passed to Fit only.
type ScaledRegressor struct {
	Scaler model.Transformer
	Model  model.Regressor
}

// Fit fits the scaler, then the model on the scaled features.
func (s *ScaledRegressor) Fit(X, y mat.Matrix) error {
	if err := s.Scaler.Fit(X); err != nil {
		return errors.Wrap(err, "failed to fit step 'scaler'")
	}
	Xs, err := s.Scaler.Transform(X)
	if err != nil {
		return errors.Wrap(err, "failed to transform at step 'scaler'")
	}
	if err := errors.CheckMatrix("ScaledRegressor.Fit", Xs); err != nil {
		return err
	}
	if err := s.Model.Fit(Xs, y); err != nil {
		return errors.Wrap(err, "failed to fit step 'model'")
	}
	return nil
}

// Predict scales X with the fitted scaler and predicts with the model.
func (s *ScaledRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := s.Scaler.Transform(X)
	if err != nil {
		return nil, errors.Wrap(err, "failed to transform at step 'scaler'")
	}
	return s.Model.Predict(Xs)
}

// Score returns R² of the predictions for X against y.
func (s *ScaledRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams returns the wrapped model's parameters plus "standardize".
func (s *ScaledRegressor) GetParams() map[string]interface{} {
	params := map[string]interface{}{"standardize": true}
	if pg, ok := s.Model.(model.ParameterGetter); ok {
		for k, v := range pg.GetParams() {
			params[k] = v
		}
	}
	return params
}
