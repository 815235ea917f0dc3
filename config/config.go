// Package config holds the evaluation settings and loads them from YAML
// files and TUMOREVAL_* environment variables.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

// EnvPrefix is the environment prefix read by Load, e.g.
// TUMOREVAL_EVALUATION_SEED=7.
const EnvPrefix = "TUMOREVAL"

// Variant names known to the registry.
const (
	DecisionTree = "decision_tree"
	MLP          = "mlp"
	RandomForest = "random_forest"
)

// Config is the complete evaluation configuration. New returns the defaults
// and Load overlays a YAML file and TUMOREVAL_* variables.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Evaluation EvaluationConfig `yaml:"evaluation" mapstructure:"evaluation"`
	SMOTE      SMOTEConfig      `yaml:"smote" mapstructure:"smote"`
	Models     ModelsConfig     `yaml:"models" mapstructure:"models"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn warning error"`

	// Console enables human readable output instead of JSON lines.
	Console bool `yaml:"console" mapstructure:"console"`
}

// DataConfig locates the dataset and names the feature columns.
type DataConfig struct {
	// Path is the WDBC CSV file.
	Path string `yaml:"path" mapstructure:"path"`

	// Features are the columns fed to the classifiers, in order.
	Features []string `yaml:"features" mapstructure:"features" validate:"min=1,unique,dive,required"`
}

// EvaluationConfig drives the hold-out split, cross-validation and the
// variants that are compared.
type EvaluationConfig struct {
	// Seed drives the split, SMOTE, fold shuffling and every variant.
	Seed int64 `yaml:"seed" mapstructure:"seed"`

	// TestSize is the hold-out fraction.
	TestSize float64 `yaml:"test_size" mapstructure:"test_size" validate:"gt=0,lt=1"`

	// Folds is the number of stratified cross-validation folds.
	Folds int `yaml:"folds" mapstructure:"folds" validate:"gte=2"`

	// Shuffle shuffles samples within each class before folding.
	Shuffle bool `yaml:"shuffle" mapstructure:"shuffle"`

	// PositiveLabel is the label scored by precision, recall and F1.
	PositiveLabel float64 `yaml:"positive_label" mapstructure:"positive_label"`

	// Variants lists the registry entries to evaluate, in report order.
	Variants []string `yaml:"variants" mapstructure:"variants" validate:"min=1,unique,dive,oneof=decision_tree mlp random_forest"`

	// Parallel evaluates variants concurrently.
	Parallel bool `yaml:"parallel" mapstructure:"parallel"`

	// Workers bounds concurrent variants; 0 means one per CPU.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

// SMOTEConfig configures the training-set balancer.
type SMOTEConfig struct {
	KNeighbors int `yaml:"k_neighbors" mapstructure:"k_neighbors" validate:"gte=1"`

	// Interpolation is "feature" (one draw per feature) or "segment".
	Interpolation string `yaml:"interpolation" mapstructure:"interpolation" validate:"oneof=feature segment"`
}

// ModelsConfig holds the hyperparameters of each variant.
type ModelsConfig struct {
	DecisionTree TreeConfig   `yaml:"decision_tree" mapstructure:"decision_tree"`
	MLP          MLPConfig    `yaml:"mlp" mapstructure:"mlp"`
	RandomForest ForestConfig `yaml:"random_forest" mapstructure:"random_forest"`
}

// TreeConfig configures the decision tree variant.
type TreeConfig struct {
	Criterion       string `yaml:"criterion" mapstructure:"criterion" validate:"oneof=gini entropy"`
	MaxDepth        int    `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split" mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     string `yaml:"max_features" mapstructure:"max_features" validate:"oneof=all sqrt log2"`
}

// MLPConfig configures the multi-layer perceptron variant.
type MLPConfig struct {
	HiddenLayerSizes []int   `yaml:"hidden_layer_sizes" mapstructure:"hidden_layer_sizes" validate:"min=1,dive,gte=1"`
	Activation       string  `yaml:"activation" mapstructure:"activation" validate:"oneof=relu tanh logistic"`
	Alpha            float64 `yaml:"alpha" mapstructure:"alpha" validate:"gte=0"`
	BatchSize        int     `yaml:"batch_size" mapstructure:"batch_size"`
	LearningRate     float64 `yaml:"learning_rate" mapstructure:"learning_rate" validate:"gt=0"`
	MaxIter          int     `yaml:"max_iter" mapstructure:"max_iter" validate:"gte=1"`
	Tol              float64 `yaml:"tol" mapstructure:"tol" validate:"gte=0"`
	NIterNoChange    int     `yaml:"n_iter_no_change" mapstructure:"n_iter_no_change" validate:"gte=1"`
	Shuffle          bool    `yaml:"shuffle" mapstructure:"shuffle"`
	Standardize      bool    `yaml:"standardize" mapstructure:"standardize"`
}

// ForestConfig configures the random forest variant.
type ForestConfig struct {
	NEstimators     int    `yaml:"n_estimators" mapstructure:"n_estimators" validate:"gte=1"`
	Criterion       string `yaml:"criterion" mapstructure:"criterion" validate:"oneof=gini entropy"`
	MaxDepth        int    `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split" mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     string `yaml:"max_features" mapstructure:"max_features" validate:"oneof=all sqrt log2"`
	Bootstrap       bool   `yaml:"bootstrap" mapstructure:"bootstrap"`
}

// ReportConfig selects where and how reports are written.
type ReportConfig struct {
	// Dir receives report files; empty writes only the table to stdout.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Formats written to Dir.
	Formats []string `yaml:"formats" mapstructure:"formats" validate:"dive,oneof=table csv json png"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		Log:        NewDefaultLogConfig(),
		Data:       NewDefaultDataConfig(),
		Evaluation: NewDefaultEvaluationConfig(),
		SMOTE:      NewDefaultSMOTEConfig(),
		Models: ModelsConfig{
			DecisionTree: NewDefaultTreeConfig(),
			MLP:          NewDefaultMLPConfig(),
			RandomForest: NewDefaultForestConfig(),
		},
		Report: NewDefaultReportConfig(),
	}
}

// NewDefaultLogConfig returns the log defaults.
func NewDefaultLogConfig() LogConfig {
	return LogConfig{Level: "info"}
}

// NewDefaultDataConfig returns the data defaults.
func NewDefaultDataConfig() DataConfig {
	return DataConfig{
		Features: []string{"radius_mean", "concave points_mean", "perimeter_mean", "area_mean"},
	}
}

// NewDefaultEvaluationConfig returns the evaluation defaults.
func NewDefaultEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		Seed:          42,
		TestSize:      0.2,
		Folds:         5,
		Shuffle:       true,
		PositiveLabel: 0,
		Variants:      []string{DecisionTree, MLP, RandomForest},
	}
}

// NewDefaultSMOTEConfig returns the smote defaults.
func NewDefaultSMOTEConfig() SMOTEConfig {
	return SMOTEConfig{KNeighbors: 5, Interpolation: "feature"}
}

// NewDefaultTreeConfig returns the decision tree defaults.
func NewDefaultTreeConfig() TreeConfig {
	return TreeConfig{
		Criterion:       "gini",
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "all",
	}
}

// NewDefaultMLPConfig returns the mlp defaults.
func NewDefaultMLPConfig() MLPConfig {
	return MLPConfig{
		HiddenLayerSizes: []int{100},
		Activation:       "relu",
		Alpha:            0.0001,
		BatchSize:        0,
		LearningRate:     0.001,
		MaxIter:          200,
		Tol:              1e-4,
		NIterNoChange:    10,
		Shuffle:          true,
		Standardize:      true,
	}
}

// NewDefaultForestConfig returns the random forest defaults.
func NewDefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators:     100,
		Criterion:       "gini",
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
	}
}

// NewDefaultReportConfig returns the report defaults.
func NewDefaultReportConfig() ReportConfig {
	return ReportConfig{Formats: []string{"table", "csv", "json", "png"}}
}

// Validate checks struct tags and the constraints that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed '"+fe.Tag()+"' constraint", fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}

	if l := c.Evaluation.PositiveLabel; l != 0 && l != 1 {
		return errors.NewValidationError("evaluation.positive_label", "must be 0 (benign) or 1 (malignant)", l)
	}
	if c.Models.MLP.BatchSize < 0 {
		return errors.NewValidationError("models.mlp.batch_size", "must be 0 (auto) or positive", c.Models.MLP.BatchSize)
	}
	return nil
}

// Load reads path (when non-empty) over the defaults, applies TUMOREVAL_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, New())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.console", c.Log.Console)

	v.SetDefault("data.path", c.Data.Path)
	v.SetDefault("data.features", c.Data.Features)

	v.SetDefault("evaluation.seed", c.Evaluation.Seed)
	v.SetDefault("evaluation.test_size", c.Evaluation.TestSize)
	v.SetDefault("evaluation.folds", c.Evaluation.Folds)
	v.SetDefault("evaluation.shuffle", c.Evaluation.Shuffle)
	v.SetDefault("evaluation.positive_label", c.Evaluation.PositiveLabel)
	v.SetDefault("evaluation.variants", c.Evaluation.Variants)
	v.SetDefault("evaluation.parallel", c.Evaluation.Parallel)
	v.SetDefault("evaluation.workers", c.Evaluation.Workers)

	v.SetDefault("smote.k_neighbors", c.SMOTE.KNeighbors)
	v.SetDefault("smote.interpolation", c.SMOTE.Interpolation)

	dt := c.Models.DecisionTree
	v.SetDefault("models.decision_tree.criterion", dt.Criterion)
	v.SetDefault("models.decision_tree.max_depth", dt.MaxDepth)
	v.SetDefault("models.decision_tree.min_samples_split", dt.MinSamplesSplit)
	v.SetDefault("models.decision_tree.min_samples_leaf", dt.MinSamplesLeaf)
	v.SetDefault("models.decision_tree.max_features", dt.MaxFeatures)

	mlp := c.Models.MLP
	v.SetDefault("models.mlp.hidden_layer_sizes", mlp.HiddenLayerSizes)
	v.SetDefault("models.mlp.activation", mlp.Activation)
	v.SetDefault("models.mlp.alpha", mlp.Alpha)
	v.SetDefault("models.mlp.batch_size", mlp.BatchSize)
	v.SetDefault("models.mlp.learning_rate", mlp.LearningRate)
	v.SetDefault("models.mlp.max_iter", mlp.MaxIter)
	v.SetDefault("models.mlp.tol", mlp.Tol)
	v.SetDefault("models.mlp.n_iter_no_change", mlp.NIterNoChange)
	v.SetDefault("models.mlp.shuffle", mlp.Shuffle)
	v.SetDefault("models.mlp.standardize", mlp.Standardize)

	rf := c.Models.RandomForest
	v.SetDefault("models.random_forest.n_estimators", rf.NEstimators)
	v.SetDefault("models.random_forest.criterion", rf.Criterion)
	v.SetDefault("models.random_forest.max_depth", rf.MaxDepth)
	v.SetDefault("models.random_forest.min_samples_split", rf.MinSamplesSplit)
	v.SetDefault("models.random_forest.min_samples_leaf", rf.MinSamplesLeaf)
	v.SetDefault("models.random_forest.max_features", rf.MaxFeatures)
	v.SetDefault("models.random_forest.bootstrap", rf.Bootstrap)

	v.SetDefault("report.dir", c.Report.Dir)
	v.SetDefault("report.formats", c.Report.Formats)
}
