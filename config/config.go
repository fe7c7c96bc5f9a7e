// Package config loads pipeline configuration for the predsql CLI.
//
// Configuration comes from four layers in ascending precedence: built-in
// defaults, a TOML file, PREDSQL_* environment variables, and explicitly set
// command-line flags. All four resolve through viper, so a value can be
// pinned in a file for repeatable runs and still be overridden ad hoc from
// the environment or the command line.
package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ezoic/predsql/boost"
	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/score"
	"github.com/ezoic/predsql/sqlgen"
	"github.com/ezoic/predsql/trips"
)

// Model kinds accepted by the fit stage.
const (
	ModelGBT    = "gbt"
	ModelLinear = "linear"
)

// Config is the full pipeline configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Sample      SampleConfig      `mapstructure:"sample"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Fit         FitConfig         `mapstructure:"fit"`
	Score       ScoreConfig       `mapstructure:"score"`
	Output      OutputConfig      `mapstructure:"output"`
}

// DatabaseConfig locates the trip table.
type DatabaseConfig struct {
	Path      string `mapstructure:"path"`
	Table     string `mapstructure:"table"`
	KeyColumn string `mapstructure:"key_column"`
}

// SampleConfig controls dense-key sampling.
type SampleConfig struct {
	Size int   `mapstructure:"size"`
	Seed int64 `mapstructure:"seed"`
}

// CorrelationConfig controls the correlation analysis.
type CorrelationConfig struct {
	// Threshold is the minimum |r| for a pair to count as strongly
	// correlated.
	Threshold float64 `mapstructure:"threshold"`
}

// FitConfig selects the model kind and its hyperparameters. An empty
// Features list means every numeric trip column except the target.
type FitConfig struct {
	Model         string   `mapstructure:"model"`
	Target        string   `mapstructure:"target"`
	Features      []string `mapstructure:"features"`
	NumIterations int      `mapstructure:"num_iterations"`
	LearningRate  float64  `mapstructure:"learning_rate"`
	MaxDepth      int      `mapstructure:"max_depth"`
	MinDataInLeaf int      `mapstructure:"min_data_in_leaf"`
	Lambda        float64  `mapstructure:"lambda"`
	Seed          int64    `mapstructure:"seed"`
}

// ScoreConfig controls SQL equivalence scoring.
type ScoreConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
	Dialect   string  `mapstructure:"dialect"`
}

// OutputConfig names where generated artifacts (documents, HTML charts)
// are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// GetDefaultConfig returns the built-in defaults. TestSetDefault pins this
// struct against the viper defaults registered by setDefault.
func GetDefaultConfig() *Config {
	tp := boost.DefaultTrainingParams()
	return &Config{
		Database: DatabaseConfig{
			Path:      "predsql.db",
			Table:     trips.TableName,
			KeyColumn: trips.KeyColumn,
		},
		Sample: SampleConfig{
			Size: 10000,
			Seed: 42,
		},
		Correlation: CorrelationConfig{
			Threshold: 0.6,
		},
		Fit: FitConfig{
			Model:         ModelGBT,
			Target:        "fare_amount",
			NumIterations: tp.NumIterations,
			LearningRate:  tp.LearningRate,
			MaxDepth:      tp.MaxDepth,
			MinDataInLeaf: tp.MinDataInLeaf,
			Lambda:        tp.Lambda,
			Seed:          int64(tp.Seed),
		},
		Score: ScoreConfig{
			Tolerance: score.DefaultTolerance,
			Dialect:   sqlgen.SQLite.String(),
		},
		Output: OutputConfig{
			Dir: "out",
		},
	}
}

// setDefault registers every configuration key with viper so a partial file
// only has to name the keys it changes.
func setDefault() {
	tp := boost.DefaultTrainingParams()
	// [database]
	viper.SetDefault("database.path", "predsql.db")
	viper.SetDefault("database.table", trips.TableName)
	viper.SetDefault("database.key_column", trips.KeyColumn)
	// [sample]
	viper.SetDefault("sample.size", 10000)
	viper.SetDefault("sample.seed", 42)
	// [correlation]
	viper.SetDefault("correlation.threshold", 0.6)
	// [fit]
	viper.SetDefault("fit.model", ModelGBT)
	viper.SetDefault("fit.target", "fare_amount")
	viper.SetDefault("fit.num_iterations", tp.NumIterations)
	viper.SetDefault("fit.learning_rate", tp.LearningRate)
	viper.SetDefault("fit.max_depth", tp.MaxDepth)
	viper.SetDefault("fit.min_data_in_leaf", tp.MinDataInLeaf)
	viper.SetDefault("fit.lambda", tp.Lambda)
	viper.SetDefault("fit.seed", tp.Seed)
	// [score]
	viper.SetDefault("score.tolerance", score.DefaultTolerance)
	viper.SetDefault("score.dialect", sqlgen.SQLite.String())
	// [output]
	viper.SetDefault("output.dir", "out")
}

// configBinding pairs a viper key with the environment variable that
// overrides it.
type configBinding struct {
	key string
	env string
}

var envBindings = []configBinding{
	{"database.path", "PREDSQL_DATABASE_PATH"},
	{"database.table", "PREDSQL_TABLE"},
	{"database.key_column", "PREDSQL_KEY_COLUMN"},
	{"sample.size", "PREDSQL_SAMPLE_SIZE"},
	{"sample.seed", "PREDSQL_SAMPLE_SEED"},
	{"correlation.threshold", "PREDSQL_CORRELATION_THRESHOLD"},
	{"fit.model", "PREDSQL_FIT_MODEL"},
	{"fit.target", "PREDSQL_FIT_TARGET"},
	{"score.tolerance", "PREDSQL_SCORE_TOLERANCE"},
	{"score.dialect", "PREDSQL_SCORE_DIALECT"},
	{"output.dir", "PREDSQL_OUTPUT_DIR"},
}

// LoadConfig loads configuration from the TOML file at path, layered over
// the defaults and under any PREDSQL_* environment variables. An empty path
// skips the file and returns defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	const op = "config.LoadConfig"
	setDefault()

	for _, binding := range envBindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Wrapf(err, "%s: bind %s", op, binding.env)
		}
	}

	if path != "" {
		viper.SetConfigType("toml")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "%s: read %q", op, path)
		}
	}

	conf := new(Config)
	if err := viper.Unmarshal(conf); err != nil {
		return nil, errors.Wrapf(err, "%s: unmarshal", op)
	}
	return conf, nil
}

// AddFlags registers the pipeline-wide flags. Call BindFlags after parsing
// so explicitly set flags override file and environment values.
func AddFlags(fs *pflag.FlagSet) {
	defaults := GetDefaultConfig()
	fs.String("db", defaults.Database.Path, "path to the SQLite database file")
	fs.String("table", defaults.Database.Table, "trip table name")
	fs.String("key-column", defaults.Database.KeyColumn, "dense integer key column")
	fs.String("out-dir", defaults.Output.Dir, "directory for generated artifacts")
}

// BindFlags binds the flags registered by AddFlags to their configuration
// keys. A flag left at its default does not shadow file or environment
// values; only flags the user actually set take precedence.
func BindFlags(fs *pflag.FlagSet) error {
	const op = "config.BindFlags"
	bindings := []struct {
		key  string
		flag string
	}{
		{"database.path", "db"},
		{"database.table", "table"},
		{"database.key_column", "key-column"},
		{"output.dir", "out-dir"},
	}
	for _, binding := range bindings {
		f := fs.Lookup(binding.flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(binding.key, f); err != nil {
			return errors.Wrapf(err, "%s: bind --%s", op, binding.flag)
		}
	}
	return nil
}

// Validate checks the loaded configuration for values no pipeline stage
// could accept. It returns the first problem found as a ValueError.
func (c *Config) Validate() error {
	const op = "config.Validate"
	if c.Database.Path == "" {
		return errors.NewValueError(op, "database.path must not be empty")
	}
	if c.Database.Table == "" {
		return errors.NewValueError(op, "database.table must not be empty")
	}
	if c.Database.KeyColumn == "" {
		return errors.NewValueError(op, "database.key_column must not be empty")
	}
	if c.Sample.Size < 1 {
		return errors.NewValueError(op, "sample.size must be at least 1")
	}
	if c.Correlation.Threshold < 0 || c.Correlation.Threshold > 1 {
		return errors.NewValueError(op, "correlation.threshold must be in [0, 1]")
	}
	if c.Fit.Model != ModelGBT && c.Fit.Model != ModelLinear {
		return errors.NewValueError(op, "fit.model must be \"gbt\" or \"linear\"")
	}
	if c.Fit.Target == "" {
		return errors.NewValueError(op, "fit.target must not be empty")
	}
	if c.Score.Tolerance < 0 {
		return errors.NewValueError(op, "score.tolerance must not be negative")
	}
	if _, err := sqlgen.ParseDialect(c.Score.Dialect); err != nil {
		return err
	}
	return nil
}
