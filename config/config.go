// Package config loads and validates training configuration from TOML,
// filling unset fields with defaults that match the reference training
// recipe.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Dataset configures where images come from and how they are split
type Dataset struct {
	Root            string  `toml:"root"`
	ImageHeight     int     `toml:"image_height"`
	ImageWidth      int     `toml:"image_width"`
	SplitFraction   float64 `toml:"split_fraction"`
	Seed            int64   `toml:"seed"`
	ExpectedClasses int     `toml:"expected_classes"` // 0 disables the check
	ShuffleBuffer   int     `toml:"shuffle_buffer"`
	CacheSize       int     `toml:"cache_size"`
	PrefetchDepth   int     `toml:"prefetch_depth"`
}

// Training configures the optimization loop
type Training struct {
	BatchSize      int     `toml:"batch_size"`
	MaxEpochs      int     `toml:"max_epochs"`
	Patience       int     `toml:"patience"`
	LearningRate   float64 `toml:"learning_rate"`
	Optimizer      string  `toml:"optimizer"` // "adam" or "sgd"
	Momentum       float64 `toml:"momentum"`  // sgd only
	Augment        bool    `toml:"augment"`
	RotationFactor float64 `toml:"rotation_factor"`
}

// Output configures where artifacts land
type Output struct {
	Dir            string `toml:"dir"`
	BestCheckpoint string `toml:"best_checkpoint"`
	FinalModel     string `toml:"final_model"`
	HistoryDB      string `toml:"history_db"`
}

// Logging configures log output
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration for a training run
type Config struct {
	Dataset  Dataset  `toml:"dataset"`
	Training Training `toml:"training"`
	Output   Output   `toml:"output"`
	Logging  Logging  `toml:"logging"`
}

// Default returns the reference training recipe
func Default() Config {
	return Config{
		Dataset: Dataset{
			Root:          "data",
			ImageHeight:   224,
			ImageWidth:    224,
			SplitFraction: 0.2,
			Seed:          123,
			ShuffleBuffer: 1000,
			CacheSize:     1000,
			PrefetchDepth: 4,
		},
		Training: Training{
			BatchSize:      32,
			MaxEpochs:      20,
			Patience:       3,
			LearningRate:   0.001,
			Optimizer:      "adam",
			Momentum:       0.9,
			Augment:        true,
			RotationFactor: 0.2,
		},
		Output: Output{
			Dir:            "models",
			BestCheckpoint: "best.json",
			FinalModel:     "final.json",
			HistoryDB:      "history.db",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads a config file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateSample writes a commented sample configuration file
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// BestCheckpointPath returns where the best checkpoint is written
func (c *Config) BestCheckpointPath() string {
	return filepath.Join(c.Output.Dir, c.Output.BestCheckpoint)
}

// FinalModelPath returns the path of the final model artifact
func (c *Config) FinalModelPath() string {
	return filepath.Join(c.Output.Dir, c.Output.FinalModel)
}

// HistoryDBPath returns the path of the run-history database
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Output.Dir, c.Output.HistoryDB)
}
