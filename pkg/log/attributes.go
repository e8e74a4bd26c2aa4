package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator or transformer.
	// Examples: "ColumnEncoder", "RandomForestRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Pipeline run context.
const (
	// RunIDKey identifies one pipeline run. Plot file names and the log file
	// entries of a run share it.
	RunIDKey = "run.id"

	// StageKey names the pipeline stage: "load", "plots", "impute", "prune",
	// "encode", "derive", "score", "fit", "predict", "write".
	StageKey = "pipeline.stage"

	// ColumnKey names the column a record is about.
	ColumnKey = "data.column"

	// ColumnsKey carries a list of column names.
	ColumnsKey = "data.columns"

	// PathKey is a file system path read or written by a stage.
	PathKey = "io.path"
)

// Data shape.
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns.
	FeaturesKey = "data.features"

	// MissingKey is a count of missing cells.
	MissingKey = "data.missing"
)

// Performance and scores.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records the coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	RMSEKey = "metrics.rmse"
	MAEKey  = "metrics.mae"

	// ScoresKey carries per-fold cross-validation scores.
	ScoresKey = "metrics.cv_scores"

	// FoldKey is the index of a cross-validation fold.
	FoldKey = "training.fold"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error context.
const (
	// ErrorTypeKey categorizes the error.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains the stack trace extracted from a cockroachdb error.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters.
const (
	// HyperParamsKey contains model hyperparameters.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// SchemaVersionKey records the schema version a stage was configured with.
	SchemaVersionKey = "config.schema_version"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
