package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 224, cfg.Dataset.ImageHeight)
	assert.Equal(t, 32, cfg.Training.BatchSize)
	assert.Equal(t, 20, cfg.Training.MaxEpochs)
	assert.Equal(t, 3, cfg.Training.Patience)
	assert.InDelta(t, 0.2, cfg.Dataset.SplitFraction, 1e-12)
	assert.Equal(t, int64(123), cfg.Dataset.Seed)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[dataset]
root = "/data/damage"
split_fraction = 0.3

[training]
batch_size = 16
optimizer = "sgd"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/damage", cfg.Dataset.Root)
	assert.InDelta(t, 0.3, cfg.Dataset.SplitFraction, 1e-12)
	assert.Equal(t, 16, cfg.Training.BatchSize)
	assert.Equal(t, "sgd", cfg.Training.Optimizer)

	// Untouched fields keep their defaults
	assert.Equal(t, 224, cfg.Dataset.ImageWidth)
	assert.Equal(t, 20, cfg.Training.MaxEpochs)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[dataset\nroot ="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"split fraction zero", func(c *Config) { c.Dataset.SplitFraction = 0 }, "dataset.split_fraction"},
		{"split fraction one", func(c *Config) { c.Dataset.SplitFraction = 1 }, "dataset.split_fraction"},
		{"empty root", func(c *Config) { c.Dataset.Root = " " }, "dataset.root"},
		{"zero batch size", func(c *Config) { c.Training.BatchSize = 0 }, "training.batch_size"},
		{"negative patience", func(c *Config) { c.Training.Patience = -1 }, "training.patience"},
		{"unknown optimizer", func(c *Config) { c.Training.Optimizer = "rmsprop" }, "training.optimizer"},
		{"zero learning rate", func(c *Config) { c.Training.LearningRate = 0 }, "training.learning_rate"},
		{"negative classes", func(c *Config) { c.Dataset.ExpectedClasses = -1 }, "dataset.expected_classes"},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, CreateSample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.Dataset.Root)
}

func TestArtifactPaths(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "/out"
	assert.Equal(t, filepath.Join("/out", "best.json"), cfg.BestCheckpointPath())
	assert.Equal(t, filepath.Join("/out", "final.json"), cfg.FinalModelPath())
	assert.Equal(t, filepath.Join("/out", "history.db"), cfg.HistoryDBPath())
}
