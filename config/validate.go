package config

import (
	"fmt"
	"strings"
)

// ValidationError reports a configuration field that cannot be used
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks the configuration before any dataset or model work
// starts, so bad settings fail fast instead of mid-run.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDataset() error {
	if strings.TrimSpace(c.Dataset.Root) == "" {
		return invalid("dataset.root", "must be set")
	}
	if c.Dataset.ImageHeight <= 0 || c.Dataset.ImageWidth <= 0 {
		return invalid("dataset.image_height/image_width", "must be positive")
	}
	if c.Dataset.SplitFraction <= 0 || c.Dataset.SplitFraction >= 1 {
		return invalid("dataset.split_fraction", fmt.Sprintf("must be in (0, 1), got %g", c.Dataset.SplitFraction))
	}
	if c.Dataset.ExpectedClasses < 0 {
		return invalid("dataset.expected_classes", "cannot be negative")
	}
	if c.Dataset.ShuffleBuffer <= 0 {
		return invalid("dataset.shuffle_buffer", "must be positive")
	}
	if c.Dataset.CacheSize <= 0 {
		return invalid("dataset.cache_size", "must be positive")
	}
	if c.Dataset.PrefetchDepth <= 0 {
		return invalid("dataset.prefetch_depth", "must be positive")
	}
	return nil
}

func (c *Config) validateTraining() error {
	if c.Training.BatchSize <= 0 {
		return invalid("training.batch_size", "must be positive")
	}
	if c.Training.MaxEpochs <= 0 {
		return invalid("training.max_epochs", "must be positive")
	}
	if c.Training.Patience < 0 {
		return invalid("training.patience", "cannot be negative")
	}
	if c.Training.LearningRate <= 0 {
		return invalid("training.learning_rate", "must be positive")
	}
	switch c.Training.Optimizer {
	case "adam", "sgd":
	default:
		return invalid("training.optimizer", fmt.Sprintf("must be \"adam\" or \"sgd\", got %q", c.Training.Optimizer))
	}
	if c.Training.Momentum < 0 || c.Training.Momentum >= 1 {
		return invalid("training.momentum", "must be in [0, 1)")
	}
	if c.Training.RotationFactor < 0 {
		return invalid("training.rotation_factor", "cannot be negative")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return invalid("output.dir", "must be set")
	}
	if c.Output.BestCheckpoint == "" || c.Output.FinalModel == "" {
		return invalid("output.best_checkpoint/final_model", "must be set")
	}
	if c.Output.HistoryDB == "" {
		return invalid("output.history_db", "must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return invalid("logging.level", fmt.Sprintf("must be debug, info, warn, or error, got %q", c.Logging.Level))
	}
}
