package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/eda"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/schema"
	"github.com/YuminosukeSato/houseprice/sklearn/model_selection"
)

// StampLayout formats the run timestamp used in artifact file names.
const StampLayout = "20060102-150405"

// Plotter draws the exploratory plots of the raw training table.
type Plotter interface {
	NullsHeatmap(t *table.Table, stamp string) (string, error)
	OtherPlots(t *table.Table, stamp string) (string, error)
}

// Report summarizes one run.
type Report struct {
	RunID     string
	Stamp     string
	StartedAt time.Time
	Duration  time.Duration

	Schema    string
	Model     string
	TrainRows int
	EvalRows  int
	Features  []string

	// CVScores holds the held-out R² of each fold; CVRMSE and CVMAE are
	// the same folds' errors in target units.
	CVScores []float64
	CVRMSE   []float64
	CVMAE    []float64
	CVMean   float64
	CVStd    float64
	// Mean of CVRMSE and CVMAE.
	CVMeanRMSE float64
	CVMeanMAE  float64
	// TrainR2 is R² of the final model on the training rows.
	TrainR2 float64

	Plots      []string
	PlotErrors []string

	PredictionsPath    string
	PredictionsWritten bool
	PredictionsError   string
}

// Runner is the I/O boundary around the pipeline: it loads the input files,
// plots, prepares, cross-validates, fits, predicts and writes predictions.
type Runner struct {
	cfg     *config.Config
	schema  *schema.Schema
	plotter Plotter
	now     func() time.Time
	logger  log.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPlotter replaces the gonum/plot based plotter.
func WithPlotter(p Plotter) RunnerOption { return func(r *Runner) { r.plotter = p } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l log.Logger) RunnerOption { return func(r *Runner) { r.logger = l } }

// NewRunner creates a runner for cfg and s.
func NewRunner(cfg *config.Config, s *schema.Schema, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		schema: s,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.plotter == nil {
		r.plotter = eda.NewPlotter(cfg.PlotsDir, s.Target)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("Runner")
	}
	return r
}

// Run executes one job. A failure to load either input aborts before any
// transformation. Plot failures are logged and recorded in the report only.
// A failure to write predictions is recorded in the report and also returned.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	defer errors.Recover(&err, "Runner.Run")

	started := r.now()
	report = &Report{
		RunID:           uuid.NewString(),
		Stamp:           started.Format(StampLayout),
		StartedAt:       started,
		Schema:          r.schema.Ref(),
		Model:           r.cfg.Model.Kind,
		PredictionsPath: r.cfg.PredictionsPath(),
	}
	defer func() { report.Duration = r.now().Sub(started) }()

	logger := r.logger.With(log.RunIDKey, report.RunID)
	logger.Info("run started",
		log.SchemaVersionKey, report.Schema,
		log.ModelNameKey, report.Model,
		"stamp", report.Stamp,
	)

	train, err := r.load(logger, "training", r.cfg.TrainPath())
	if err != nil {
		return report, err
	}
	eval, err := r.load(logger, "evaluation", r.cfg.EvalPath())
	if err != nil {
		return report, err
	}

	if r.cfg.PlotsEnabled {
		r.plot(logger, report, train)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	p := New(r.schema, WithParallel(r.cfg.Parallel), WithLogger(logger))
	prep, err := p.Prepare(train, eval)
	if err != nil {
		logger.Error("feature pipeline failed", err)
		return report, err
	}
	report.TrainRows = prep.Train.Rows()
	report.EvalRows = prep.Eval.Rows()
	report.Features = prep.Train.Names()

	factory, err := NewRegressorFactory(r.cfg.Model)
	if err != nil {
		return report, err
	}

	if pg, ok := factory().(model.ParameterGetter); ok {
		logger.Info("model configured", log.HyperParamsKey, pg.GetParams())
	}

	X, y, err := prep.TrainMatrix()
	if err != nil {
		return report, err
	}
	cvStart := time.Now()
	folds, err := model_selection.CrossValidate(ctx, factory, X, y,
		model_selection.NewKFold(r.cfg.Model.CVFolds), 1)
	if err != nil {
		logger.Error("cross-validation failed", err)
		return report, err
	}
	for _, f := range folds {
		report.CVScores = append(report.CVScores, f.R2)
		report.CVRMSE = append(report.CVRMSE, f.RMSE)
		report.CVMAE = append(report.CVMAE, f.MAE)
	}
	mean := model_selection.MeanFoldScore(folds)
	report.CVMean, report.CVStd = model_selection.MeanStd(report.CVScores)
	report.CVMeanRMSE, report.CVMeanMAE = mean.RMSE, mean.MAE
	logger.Info("cross-validation done",
		log.OperationKey, log.OperationScore,
		log.PhaseKey, log.PhaseValidation,
		log.ScoresKey, report.CVScores,
		log.R2ScoreKey, report.CVMean,
		"r2_std", report.CVStd,
		log.RMSEKey, report.CVMeanRMSE,
		log.MAEKey, report.CVMeanMAE,
		log.DurationMsKey, time.Since(cvStart).Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	m := factory()
	preds, err := p.FitPredict(prep, m)
	if err != nil {
		logger.Error("model fit/predict failed", err)
		return report, err
	}
	if sc, ok := m.(model.Scorer); ok {
		if report.TrainR2, err = sc.Score(X, y); err != nil {
			logger.Warn("training score not available", err)
		}
	}
	logger.Info("predictions computed",
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, preds.Len(),
		log.R2ScoreKey, report.TrainR2,
	)

	if err := dataset.SavePredictions(report.PredictionsPath, preds); err != nil {
		report.PredictionsError = err.Error()
		logger.Error("predictions were computed but not written", err, log.PathKey, report.PredictionsPath)
		return report, errors.Wrap(err, "write predictions")
	}
	report.PredictionsWritten = true
	logger.Info("run finished",
		log.PathKey, report.PredictionsPath,
		log.DurationMsKey, r.now().Sub(started).Milliseconds(),
	)
	return report, nil
}

func (r *Runner) load(logger log.Logger, role, path string) (*table.Table, error) {
	t, err := dataset.LoadCSV(path, r.schema)
	if err != nil {
		err = errors.NewInputFileError(role, path, err)
		logger.Error("cannot load input file, aborting", err, log.PathKey, path)
		return nil, err
	}
	rows, cols := t.Shape()
	logger.Info("input loaded",
		"role", role,
		log.PathKey, path,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return t, nil
}

func (r *Runner) plot(logger log.Logger, report *Report, train *table.Table) {
	for _, draw := range []func(*table.Table, string) (string, error){
		r.plotter.NullsHeatmap,
		r.plotter.OtherPlots,
	} {
		var path string
		err := errors.SafeExecute("Runner.plot", func() (err error) {
			path, err = draw(train, report.Stamp)
			return err
		})
		if err != nil {
			report.PlotErrors = append(report.PlotErrors, err.Error())
			logger.Warn("plot not written", err)
			continue
		}
		report.Plots = append(report.Plots, path)
	}
}
