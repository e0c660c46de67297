// Package training drives the optimization loop: it streams batches
// through a model, scores them against a loss, applies optimizer
// updates, and manages early stopping and best-weight checkpointing
// across epochs.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/UNO-CSCI4830/SureSight/layers"
	"github.com/UNO-CSCI4830/SureSight/tensor"
	"github.com/UNO-CSCI4830/SureSight/vision/dataloader"
)

// Model is what the trainer needs from a network: explicit forward and
// backward passes, access to trainable parameters, and a mode switch
// for train-only stages such as augmentation.
type Model interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Backward(grad *tensor.Tensor) (*tensor.Tensor, error)
	Params() []*layers.Param
	SetTraining(training bool)
}

// BatchSource supplies one epoch of batches per Batches call
type BatchSource interface {
	Batches(ctx context.Context) <-chan dataloader.BatchResult
	NumBatches() int
}

// State describes the model at a checkpoint boundary
type State struct {
	Epoch       int
	ValLoss     float64
	ValAccuracy float64
}

// ArtifactStore persists the model at checkpoint boundaries. SaveBest
// is called while the model holds the improving weights; SaveFinal is
// called once, after the best weights have been restored.
type ArtifactStore interface {
	SaveBest(state State) error
	SaveFinal(state State) error
}

// HistoryRecorder receives per-epoch statistics as they are produced
type HistoryRecorder interface {
	RecordEpoch(stats EpochStats) error
}

// EpochStats summarizes one completed epoch
type EpochStats struct {
	Epoch         int
	TrainLoss     float64
	TrainAccuracy float64
	ValLoss       float64
	ValAccuracy   float64
	Duration      time.Duration
}

// StopReason explains why training ended
type StopReason string

const (
	StopMaxEpochs StopReason = "max_epochs"
	StopEarly     StopReason = "early_stopping"
)

// Result is the outcome of a completed run
type Result struct {
	History     []EpochStats
	Reason      StopReason
	BestEpoch   int
	BestValLoss float64
}

// DivergenceError reports a non-finite batch loss. Training aborts
// immediately so a diverged model never reaches the artifact store.
type DivergenceError struct {
	Epoch int
	Batch int
	Loss  float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("training diverged: loss %g at epoch %d batch %d", e.Loss, e.Epoch, e.Batch)
}

// Config controls the trainer
type Config struct {
	MaxEpochs int
	Patience  int // consecutive epochs without val-loss improvement; 0 disables early stopping

	Logger    *slog.Logger    // nil means slog.Default()
	Artifacts ArtifactStore   // optional
	History   HistoryRecorder // optional
}

// Trainer runs the fit loop for one model
type Trainer struct {
	model  Model
	loss   Loss
	opt    Optimizer
	cfg    Config
	logger *slog.Logger
}

// NewTrainer wires a model, loss, and optimizer together
func NewTrainer(model Model, loss Loss, opt Optimizer, cfg Config) (*Trainer, error) {
	if model == nil || loss == nil || opt == nil {
		return nil, fmt.Errorf("trainer requires a model, a loss, and an optimizer")
	}
	if cfg.MaxEpochs <= 0 {
		return nil, fmt.Errorf("max epochs must be positive, got %d", cfg.MaxEpochs)
	}
	if cfg.Patience < 0 {
		return nil, fmt.Errorf("patience cannot be negative, got %d", cfg.Patience)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{model: model, loss: loss, opt: opt, cfg: cfg, logger: logger}, nil
}

// Fit trains until MaxEpochs or early stopping, whichever comes first.
// Whenever validation loss strictly improves, the weights are
// snapshotted and the artifact store's best checkpoint is refreshed; at
// termination the best snapshot is restored into the model before the
// final artifact is written, so the in-memory model and the final
// artifact both carry the best-known weights. On error the partial
// Result still holds the history of every completed epoch.
func (t *Trainer) Fit(ctx context.Context, train, val BatchSource) (*Result, error) {
	if train == nil || val == nil {
		return nil, fmt.Errorf("fit requires a training and a validation source")
	}

	result := &Result{Reason: StopMaxEpochs}
	best := &BestTracker{}
	stopper := &EarlyStopping{Patience: t.cfg.Patience}
	var bestWeights [][]float32

	t.logger.Info("starting training",
		"max_epochs", t.cfg.MaxEpochs,
		"patience", t.cfg.Patience,
		"train_batches", train.NumBatches(),
		"val_batches", val.NumBatches())

	for epoch := 1; epoch <= t.cfg.MaxEpochs; epoch++ {
		start := time.Now()

		trainLoss, trainAcc, err := t.runEpoch(ctx, train, epoch, true)
		if err != nil {
			return result, err
		}
		valLoss, valAcc, err := t.runEpoch(ctx, val, epoch, false)
		if err != nil {
			return result, err
		}

		stats := EpochStats{
			Epoch:         epoch,
			TrainLoss:     trainLoss,
			TrainAccuracy: trainAcc,
			ValLoss:       valLoss,
			ValAccuracy:   valAcc,
			Duration:      time.Since(start),
		}
		result.History = append(result.History, stats)

		t.logger.Info("epoch complete",
			"epoch", epoch,
			"train_loss", fmt.Sprintf("%.4f", trainLoss),
			"train_acc", fmt.Sprintf("%.4f", trainAcc),
			"val_loss", fmt.Sprintf("%.4f", valLoss),
			"val_acc", fmt.Sprintf("%.4f", valAcc),
			"duration", stats.Duration.Round(time.Millisecond))

		if t.cfg.History != nil {
			if err := t.cfg.History.RecordEpoch(stats); err != nil {
				t.logger.Warn("recording epoch history failed", "epoch", epoch, "error", err)
			}
		}

		improved := best.Observe(epoch, valLoss)
		if improved {
			bestWeights = snapshotParams(t.model.Params())
			if t.cfg.Artifacts != nil {
				state := State{Epoch: epoch, ValLoss: valLoss, ValAccuracy: valAcc}
				if err := t.cfg.Artifacts.SaveBest(state); err != nil {
					// Keep training; the in-memory snapshot still protects the run
					t.logger.Warn("saving best checkpoint failed", "epoch", epoch, "error", err)
				}
			}
		}

		if stopper.Observe(improved) {
			t.logger.Info("early stopping",
				"epoch", epoch,
				"best_epoch", best.BestEpoch(),
				"best_val_loss", fmt.Sprintf("%.4f", best.BestLoss()))
			result.Reason = StopEarly
			break
		}
	}

	result.BestEpoch = best.BestEpoch()
	result.BestValLoss = best.BestLoss()

	if bestWeights != nil {
		restoreParams(t.model.Params(), bestWeights)
		t.logger.Info("restored best weights", "epoch", best.BestEpoch())
	}

	if t.cfg.Artifacts != nil {
		state := State{
			Epoch:       len(result.History),
			ValLoss:     best.BestLoss(),
			ValAccuracy: bestAccuracy(result.History, best.BestEpoch()),
		}
		if err := t.cfg.Artifacts.SaveFinal(state); err != nil {
			return result, fmt.Errorf("save final model: %w", err)
		}
	}
	return result, nil
}

// runEpoch streams one epoch through the model, updating parameters
// when training is true and only measuring when false.
func (t *Trainer) runEpoch(ctx context.Context, source BatchSource, epoch int, training bool) (float64, float64, error) {
	t.model.SetTraining(training)

	var totalLoss float64
	var correct, samples, batchNum int

	for r := range source.Batches(ctx) {
		if r.Err != nil {
			return 0, 0, fmt.Errorf("load batch: %w", r.Err)
		}
		batchNum++
		n := r.Batch.Size()

		pred, err := t.model.Forward(r.Batch.Data)
		if err != nil {
			return 0, 0, err
		}
		batchLoss, err := t.loss.Forward(pred, r.Batch.Labels)
		if err != nil {
			return 0, 0, err
		}
		if math.IsNaN(batchLoss) || math.IsInf(batchLoss, 0) {
			return 0, 0, &DivergenceError{Epoch: epoch, Batch: batchNum, Loss: batchLoss}
		}

		if training {
			t.opt.ZeroGrad()
			grad, err := t.loss.Backward(pred, r.Batch.Labels)
			if err != nil {
				return 0, 0, err
			}
			if _, err := t.model.Backward(grad); err != nil {
				return 0, 0, err
			}
			t.opt.Step()
		}

		totalLoss += batchLoss * float64(n)
		correct += countCorrect(pred, r.Batch.Labels)
		samples += n
	}

	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if samples == 0 {
		return 0, 0, fmt.Errorf("epoch %d produced no samples", epoch)
	}
	return totalLoss / float64(samples), float64(correct) / float64(samples), nil
}

// snapshotParams copies every parameter's values
func snapshotParams(params []*layers.Param) [][]float32 {
	snap := make([][]float32, len(params))
	for i, p := range params {
		snap[i] = append([]float32(nil), p.Value.Float32s()...)
	}
	return snap
}

// restoreParams writes a snapshot back into the parameters
func restoreParams(params []*layers.Param, snap [][]float32) {
	for i, p := range params {
		copy(p.Value.Float32s(), snap[i])
	}
}

func bestAccuracy(history []EpochStats, bestEpoch int) float64 {
	for _, s := range history {
		if s.Epoch == bestEpoch {
			return s.ValAccuracy
		}
	}
	return 0
}
