// Package pipeline sequences the feature stages over the training and
// evaluation tables and runs the full train/score/predict job.
package pipeline

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/preprocessing"
	"github.com/YuminosukeSato/houseprice/schema"
)

// Stage names, in execution order.
const (
	StageConstantFill = "constant_fill"
	StageBlanketFill  = "blanket_fill"
	StageDropBefore   = "drop_before_encoding"
	StageEncode       = "encode"
	StageDerive       = "derive"
	StageDropAfter    = "drop_after_derivation"
)

// PredictionPrefix is prepended to the target name to form the prediction column.
const PredictionPrefix = "Predicted_"

// Pipeline runs the fixed stage order for one schema. It holds no fitted
// state; the encoding artifact is returned to the caller.
type Pipeline struct {
	schema     *schema.Schema
	encoder    *preprocessing.ColumnEncoder
	strategies map[table.Kind]preprocessing.FillStrategy
	parallel   bool
	logger     log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParallel toggles concurrent numeric/categorical encoding.
func WithParallel(parallel bool) Option {
	return func(p *Pipeline) { p.parallel = parallel }
}

// WithFillStrategies replaces the blanket fill strategies.
func WithFillStrategies(s map[table.Kind]preprocessing.FillStrategy) Option {
	return func(p *Pipeline) { p.strategies = s }
}

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a pipeline for s.
func New(s *schema.Schema, opts ...Option) *Pipeline {
	p := &Pipeline{
		schema:     s,
		strategies: preprocessing.DefaultStrategies(),
		parallel:   true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("Pipeline")
	}
	p.encoder = preprocessing.NewColumnEncoderFromSchema(s,
		preprocessing.WithParallel(p.parallel),
		preprocessing.WithEncoderLogger(p.logger),
	)
	return p
}

// Schema returns the schema the pipeline was built for.
func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// Prepared is the output of Prepare: model-ready tables plus the values
// carried around them.
type Prepared struct {
	Train    *table.Table
	Target   []float64
	Eval     *table.Table
	EvalIDs  []string
	Artifact *preprocessing.EncodingArtifact
}

// TrainMatrix returns the training features and the target as matrices.
func (pr *Prepared) TrainMatrix() (*mat.Dense, *mat.Dense, error) {
	X, err := pr.Train.ToDense()
	if err != nil {
		return nil, nil, err
	}
	y := mat.NewDense(len(pr.Target), 1, slices.Clone(pr.Target))
	return X, y, nil
}

// EvalMatrix returns the evaluation features as a matrix.
func (pr *Prepared) EvalMatrix() (*mat.Dense, error) {
	return pr.Eval.ToDense()
}

// Prepare transforms both tables. The encoder is fitted once on the
// training table and the same artifact transforms the evaluation table.
func (p *Pipeline) Prepare(train, eval *table.Table) (*Prepared, error) {
	start := time.Now()

	target, err := p.target(train)
	if err != nil {
		return nil, err
	}
	ids, err := p.identifiers(eval)
	if err != nil {
		return nil, err
	}

	trainFeatures, artifact, err := p.Fit(train)
	if err != nil {
		return nil, errors.Wrap(err, "prepare training table")
	}
	evalFeatures, err := p.Transform(eval, artifact)
	if err != nil {
		return nil, errors.Wrap(err, "prepare evaluation table")
	}

	if !slices.Equal(trainFeatures.Names(), evalFeatures.Names()) {
		return nil, errors.NewValueError("Pipeline.Prepare",
			"training and evaluation feature columns differ")
	}

	tr, tc := trainFeatures.Shape()
	er, _ := evalFeatures.Shape()
	p.logger.Info("tables prepared",
		log.OperationKey, log.OperationFitTransform,
		log.SchemaVersionKey, p.schema.Ref(),
		"train_rows", tr,
		"eval_rows", er,
		log.FeaturesKey, tc,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Prepared{
		Train:    trainFeatures,
		Target:   target,
		Eval:     evalFeatures,
		EvalIDs:  ids,
		Artifact: artifact,
	}, nil
}

// Fit cleans the training table, fits the encoder on it and finishes the
// encoded table. The returned artifact is the only fitted state.
func (p *Pipeline) Fit(train *table.Table) (*table.Table, *preprocessing.EncodingArtifact, error) {
	cleaned, err := p.Clean(train)
	if err != nil {
		return nil, nil, err
	}
	encoded, artifact, err := p.encoder.Fit(cleaned)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "stage %s", StageEncode)
	}
	p.stageDone(StageEncode, encoded)

	out, err := p.finish(encoded)
	if err != nil {
		return nil, nil, err
	}
	return out, artifact, nil
}

// Transform runs every stage on t, encoding with a previously fitted artifact.
func (p *Pipeline) Transform(t *table.Table, a *preprocessing.EncodingArtifact) (*table.Table, error) {
	if a == nil {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	cleaned, err := p.Clean(t)
	if err != nil {
		return nil, err
	}
	encoded, err := p.encoder.Transform(cleaned, a)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", StageEncode)
	}
	p.stageDone(StageEncode, encoded)
	return p.finish(encoded)
}

// Clean runs the stages before encoding: constant fill, blanket fill and
// the pre-encoding drop.
func (p *Pipeline) Clean(t *table.Table) (*table.Table, error) {
	s := p.schema

	out, err := preprocessing.FillNamedColumnsWithConstant(t, s.ConstantFill.Columns, s.ConstantFill.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", StageConstantFill)
	}
	p.stageDone(StageConstantFill, out)

	out, err = preprocessing.FillAllRemainingMissingWith(out, p.strategies)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", StageBlanketFill)
	}
	p.stageDone(StageBlanketFill, out)

	out, err = preprocessing.DropColumns(out, s.DropBeforeEncoding)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", StageDropBefore)
	}
	p.stageDone(StageDropBefore, out)
	return out, nil
}

func (p *Pipeline) finish(encoded *table.Table) (*table.Table, error) {
	out, err := preprocessing.DeriveFeatures(encoded, p.schema.Derived)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", StageDerive)
	}
	p.stageDone(StageDerive, out)

	out, err = preprocessing.DropColumns(out, p.schema.DropAfterDerivation)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", StageDropAfter)
	}
	p.stageDone(StageDropAfter, out)
	return out, nil
}

func (p *Pipeline) stageDone(stage string, t *table.Table) {
	rows, cols := t.Shape()
	p.logger.Debug("stage done",
		log.StageKey, stage,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
}

// target copies the target column from the raw training table. Missing
// target values are an error: there is nothing sensible to impute.
func (p *Pipeline) target(train *table.Table) ([]float64, error) {
	const op = "Pipeline.Prepare"
	c, err := train.Numeric(p.schema.Target)
	if err != nil {
		return nil, err
	}
	if c.MissingCount() > 0 {
		return nil, errors.NewValueError(op, "target '"+p.schema.Target+"' has missing values")
	}
	return c.Values(), nil
}

// identifiers renders the identifier column of the raw evaluation table.
func (p *Pipeline) identifiers(eval *table.Table) ([]string, error) {
	const op = "Pipeline.Prepare"
	c, ok := eval.Column(p.schema.ID)
	if !ok {
		return nil, errors.NewColumnNotFoundError(op, p.schema.ID)
	}
	if c.MissingCount() > 0 {
		return nil, errors.NewValueError(op, "identifier '"+p.schema.ID+"' has missing values")
	}
	ids := make([]string, c.Len())
	for i := range ids {
		ids[i] = c.StringAt(i)
	}
	return ids, nil
}

// FitPredict fits m on the prepared training data and predicts the
// evaluation rows, in evaluation row order.
func (p *Pipeline) FitPredict(pr *Prepared, m model.Regressor) (dataset.Predictions, error) {
	X, y, err := pr.TrainMatrix()
	if err != nil {
		return dataset.Predictions{}, err
	}
	if err := m.Fit(X, y); err != nil {
		return dataset.Predictions{}, errors.Wrap(err, "fit model")
	}
	return p.Predict(pr, m)
}

// Predict predicts the evaluation rows with an already fitted model.
func (p *Pipeline) Predict(pr *Prepared, m model.Predictor) (dataset.Predictions, error) {
	Xe, err := pr.EvalMatrix()
	if err != nil {
		return dataset.Predictions{}, err
	}
	pred, err := m.Predict(Xe)
	if err != nil {
		return dataset.Predictions{}, errors.Wrap(err, "predict")
	}
	rows, _ := pred.Dims()
	if rows != len(pr.EvalIDs) {
		return dataset.Predictions{}, errors.NewDimensionError("Pipeline.Predict", len(pr.EvalIDs), rows, 0)
	}
	if err := errors.CheckMatrix("Pipeline.Predict", pred); err != nil {
		return dataset.Predictions{}, err
	}

	return dataset.Predictions{
		IDColumn:    p.schema.ID,
		ValueColumn: PredictionPrefix + p.schema.Target,
		IDs:         slices.Clone(pr.EvalIDs),
		Values:      mat.Col(nil, 0, pred),
	}, nil
}
