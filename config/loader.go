package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// not configuration (for example --config).
var flagKeys = map[string]string{
	"data-dir":         "data_dir",
	"train-file":       "train_file",
	"eval-file":        "eval_file",
	"results-dir":      "results_dir",
	"predictions-file": "predictions_file",
	"plots-dir":        "plots_dir",
	"plots":            "plots_enabled",
	"schema":           "schema_file",
	"parallel":         "parallel",
	"log-level":        "log.level",
	"log-file":         "log.file",
	"model":            "model.kind",
	"cv-folds":         "model.cv_folds",
	"n-estimators":     "model.random_forest.n_estimators",
	"max-leaf-nodes":   "model.random_forest.max_leaf_nodes",
	"max-depth":        "model.random_forest.max_depth",
	"random-state":     "model.random_forest.random_state",
	"alpha":            "model.linear.alpha",
}

// BindFlags registers the configuration flags on fs. Their defaults are
// only shown in help; unchanged flags never override other sources.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", ".", "directory holding the input CSV files")
	fs.String("train-file", "train.csv", "training CSV file name")
	fs.String("eval-file", "test.csv", "evaluation CSV file name")
	fs.String("results-dir", "results", "directory for the prediction file")
	fs.String("predictions-file", "submission.csv", "prediction file name")
	fs.String("plots-dir", "plots", "directory for exploratory plots")
	fs.Bool("plots", true, "write exploratory plots")
	fs.String("schema", "", "schema YAML file (default: embedded houseprices/v1)")
	fs.Bool("parallel", true, "encode numeric and categorical columns concurrently")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-file", "logs/logs.log", "rotating log file; empty disables")
	fs.String("model", ModelRandomForest, "regressor: random_forest or linear")
	fs.Int("cv-folds", 10, "number of cross-validation folds")
	fs.Int("n-estimators", 100, "number of trees in the forest")
	fs.Int("max-leaf-nodes", 0, "maximum leaves per tree (0 = unlimited)")
	fs.Int("max-depth", 0, "maximum tree depth (0 = unlimited)")
	fs.Int64("random-state", 42, "seed for bootstrap and feature sampling")
	fs.Float64("alpha", 1.0, "ridge penalty of the linear model")
}

// Load reads the configuration. cfgFile may be empty, in which case
// DefaultConfigFile is used if it exists. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	// 2. config file
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", path)
		}
	}

	// 3. environment: HOUSEPRICE_MODEL__CV_FOLDS -> model.cv_folds
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	// 4. flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports the first violation as a
// ValidationError named by its config key.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			key := strings.TrimPrefix(fe.Namespace(), "Config.")
			return errors.NewValidationError(key, "failed '"+fe.Tag()+"' constraint", fe.Value())
		}
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
