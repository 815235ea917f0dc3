package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, int64(42), cfg.Evaluation.Seed)
	assert.Equal(t, 0.2, cfg.Evaluation.TestSize)
	assert.Equal(t, 5, cfg.Evaluation.Folds)
	assert.True(t, cfg.Evaluation.Shuffle)
	assert.Equal(t, 0.0, cfg.Evaluation.PositiveLabel)
	assert.Equal(t, []string{DecisionTree, MLP, RandomForest}, cfg.Evaluation.Variants)
	assert.Equal(t, 5, cfg.SMOTE.KNeighbors)
	assert.Equal(t, 100, cfg.Models.RandomForest.NEstimators)
	assert.Equal(t, []int{100}, cfg.Models.MLP.HiddenLayerSizes)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"test size too large", func(c *Config) { c.Evaluation.TestSize = 1 }, "TestSize"},
		{"test size zero", func(c *Config) { c.Evaluation.TestSize = 0 }, "TestSize"},
		{"one fold", func(c *Config) { c.Evaluation.Folds = 1 }, "Folds"},
		{"unknown variant", func(c *Config) { c.Evaluation.Variants = []string{"svm"} }, "Variants"},
		{"duplicate variant", func(c *Config) { c.Evaluation.Variants = []string{MLP, MLP} }, "Variants"},
		{"bad criterion", func(c *Config) { c.Models.DecisionTree.Criterion = "mse" }, "Criterion"},
		{"no hidden layers", func(c *Config) { c.Models.MLP.HiddenLayerSizes = nil }, "HiddenLayerSizes"},
		{"bad interpolation", func(c *Config) { c.SMOTE.Interpolation = "linear" }, "Interpolation"},
		{"positive label", func(c *Config) { c.Evaluation.PositiveLabel = 2 }, "positive_label"},
		{"negative batch", func(c *Config) { c.Models.MLP.BatchSize = -3 }, "batch_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %T", err)
			assert.Contains(t, verr.ParamName, tt.param)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tumoreval.yaml")
	content := `
evaluation:
  seed: 7
  folds: 3
  positive_label: 1
  variants: [random_forest, decision_tree]
models:
  random_forest:
    n_estimators: 10
  mlp:
    hidden_layer_sizes: [16, 8]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Evaluation.Seed)
	assert.Equal(t, 3, cfg.Evaluation.Folds)
	assert.Equal(t, 1.0, cfg.Evaluation.PositiveLabel)
	assert.Equal(t, []string{RandomForest, DecisionTree}, cfg.Evaluation.Variants)
	assert.Equal(t, 10, cfg.Models.RandomForest.NEstimators)
	assert.Equal(t, []int{16, 8}, cfg.Models.MLP.HiddenLayerSizes)

	// 未指定のキーはデフォルト
	assert.Equal(t, 0.2, cfg.Evaluation.TestSize)
	assert.Equal(t, "sqrt", cfg.Models.RandomForest.MaxFeatures)
	assert.Equal(t, New().Data.Features, cfg.Data.Features)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TUMOREVAL_EVALUATION_SEED", "123")
	t.Setenv("TUMOREVAL_SMOTE_K_NEIGHBORS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(123), cfg.Evaluation.Seed)
	assert.Equal(t, 3, cfg.SMOTE.KNeighbors)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evaluation:\n  test_size: 1.5\n"), 0o600))

	_, err := Load(path)
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
