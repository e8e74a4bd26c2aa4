// Package config loads the run configuration.
//
// Precedence (highest to lowest): flags > HOUSEPRICE_ env vars > config file > defaults.
package config

import (
	"path/filepath"
)

// Model kinds.
const (
	ModelRandomForest = "random_forest"
	ModelLinear       = "linear"
)

// DefaultConfigFile is looked up in the working directory when no file is given.
const DefaultConfigFile = "houseprice.yaml"

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: HOUSEPRICE_MODEL__CV_FOLDS=5.
const EnvPrefix = "HOUSEPRICE_"

// Config is the full run configuration.
type Config struct {
	DataDir         string `koanf:"data_dir" validate:"required"`
	TrainFile       string `koanf:"train_file" validate:"required"`
	EvalFile        string `koanf:"eval_file" validate:"required"`
	ResultsDir      string `koanf:"results_dir" validate:"required"`
	PredictionsFile string `koanf:"predictions_file" validate:"required"`
	PlotsDir        string `koanf:"plots_dir" validate:"required_if=PlotsEnabled true"`
	PlotsEnabled    bool   `koanf:"plots_enabled"`
	// SchemaFile replaces the embedded schema when set.
	SchemaFile string `koanf:"schema_file"`
	Parallel   bool   `koanf:"parallel"`

	Log   LogConfig   `koanf:"log"`
	Model ModelConfig `koanf:"model"`
}

// LogConfig configures pkg/log.Setup.
type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	File       string `koanf:"file"`
	Console    bool   `koanf:"console"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// ModelConfig selects and parameterizes the regressor.
type ModelConfig struct {
	Kind         string             `koanf:"kind" validate:"oneof=random_forest linear"`
	CVFolds      int                `koanf:"cv_folds" validate:"gte=2"`
	RandomForest RandomForestConfig `koanf:"random_forest"`
	Linear       LinearConfig       `koanf:"linear"`
}

// RandomForestConfig holds the forest hyperparameters. Zero means unlimited
// for max_leaf_nodes and max_depth, and all features for max_features.
type RandomForestConfig struct {
	NEstimators     int   `koanf:"n_estimators" validate:"gte=1"`
	MaxLeafNodes    int   `koanf:"max_leaf_nodes" validate:"eq=0|gte=2"`
	MaxDepth        int   `koanf:"max_depth" validate:"gte=0"`
	MinSamplesSplit int   `koanf:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int   `koanf:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     int   `koanf:"max_features" validate:"gte=0"`
	Bootstrap       bool  `koanf:"bootstrap"`
	RandomState     int64 `koanf:"random_state"`
}

// LinearConfig holds the linear model hyperparameters.
type LinearConfig struct {
	FitIntercept bool    `koanf:"fit_intercept"`
	Alpha        float64 `koanf:"alpha" validate:"gte=0"`
	Standardize  bool    `koanf:"standardize"`
}

// TrainPath is the training CSV path.
func (c *Config) TrainPath() string { return filepath.Join(c.DataDir, c.TrainFile) }

// EvalPath is the evaluation CSV path.
func (c *Config) EvalPath() string { return filepath.Join(c.DataDir, c.EvalFile) }

// PredictionsPath is where the prediction file is written.
func (c *Config) PredictionsPath() string {
	return filepath.Join(c.ResultsDir, c.PredictionsFile)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"data_dir":         ".",
		"train_file":       "train.csv",
		"eval_file":        "test.csv",
		"results_dir":      "results",
		"predictions_file": "submission.csv",
		"plots_dir":        "plots",
		"plots_enabled":    true,
		"schema_file":      "",
		"parallel":         true,

		"log.level":        "info",
		"log.file":         filepath.Join("logs", "logs.log"),
		"log.console":      true,
		"log.max_size_mb":  32,
		"log.max_backups":  8,
		"log.max_age_days": 15,

		"model.kind":     ModelRandomForest,
		"model.cv_folds": 10,

		"model.random_forest.n_estimators":      100,
		"model.random_forest.max_leaf_nodes":    0,
		"model.random_forest.max_depth":         0,
		"model.random_forest.min_samples_split": 2,
		"model.random_forest.min_samples_leaf":  1,
		"model.random_forest.max_features":      0,
		"model.random_forest.bootstrap":         true,
		"model.random_forest.random_state":      42,

		"model.linear.fit_intercept": true,
		"model.linear.alpha":         1.0,
		"model.linear.standardize":   true,
	}
}
