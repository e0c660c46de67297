package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/UNO-CSCI4830/SureSight/checkpoints"
	"github.com/UNO-CSCI4830/SureSight/config"
	"github.com/UNO-CSCI4830/SureSight/history"
	"github.com/UNO-CSCI4830/SureSight/layers"
	"github.com/UNO-CSCI4830/SureSight/training"
	"github.com/UNO-CSCI4830/SureSight/vision/augment"
	"github.com/UNO-CSCI4830/SureSight/vision/dataloader"
	"github.com/UNO-CSCI4830/SureSight/vision/dataset"
	"github.com/UNO-CSCI4830/SureSight/vision/preprocessing"
)

func newTrainCommand(configFlag *string) *cobra.Command {
	var (
		dataFlag      string
		outputFlag    string
		epochsFlag    int
		batchSizeFlag int
		seedFlag      int64
		noAugmentFlag bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on a directory of labeled images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			if dataFlag != "" {
				cfg.Dataset.Root = dataFlag
			}
			if outputFlag != "" {
				cfg.Output.Dir = outputFlag
			}
			if epochsFlag > 0 {
				cfg.Training.MaxEpochs = epochsFlag
			}
			if batchSizeFlag > 0 {
				cfg.Training.BatchSize = batchSizeFlag
			}
			if cmd.Flags().Changed("seed") {
				cfg.Dataset.Seed = seedFlag
			}
			if noAugmentFlag {
				cfg.Training.Augment = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runTraining(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&dataFlag, "data", "", "Dataset root directory (one subdirectory per class)")
	cmd.Flags().StringVar(&outputFlag, "output", "", "Artifact output directory")
	cmd.Flags().IntVar(&epochsFlag, "epochs", 0, "Maximum training epochs")
	cmd.Flags().IntVar(&batchSizeFlag, "batch-size", 0, "Training batch size")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "Seed for splitting, shuffling, and weight init")
	cmd.Flags().BoolVar(&noAugmentFlag, "no-augment", false, "Disable training-time augmentation")

	return cmd
}

func runTraining(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	split, err := dataset.Partition(cfg.Dataset.Root, cfg.Dataset.SplitFraction, cfg.Dataset.Seed)
	if err != nil {
		return err
	}
	numClasses := split.Catalog.Len()
	if cfg.Dataset.ExpectedClasses > 0 && numClasses != cfg.Dataset.ExpectedClasses {
		return &config.ValidationError{
			Field:  "dataset.expected_classes",
			Reason: fmt.Sprintf("dataset has %d classes, expected %d", numClasses, cfg.Dataset.ExpectedClasses),
		}
	}

	logger.Info("dataset partitioned",
		"root", cfg.Dataset.Root,
		"classes", numClasses,
		"train_images", len(split.Train),
		"val_images", len(split.Val))
	dist := split.Distribution()
	for _, name := range split.Catalog.Names() {
		logger.Info("class", "name", name, "images", dist[name])
	}

	processor := preprocessing.NewImageProcessor(cfg.Dataset.ImageHeight, cfg.Dataset.ImageWidth)

	trainLoader, err := dataloader.New(split.Train, processor, dataloader.Config{
		BatchSize:     cfg.Training.BatchSize,
		Shuffle:       true,
		ShuffleBuffer: cfg.Dataset.ShuffleBuffer,
		PrefetchDepth: cfg.Dataset.PrefetchDepth,
		CacheSize:     cfg.Dataset.CacheSize,
		Seed:          cfg.Dataset.Seed,
	})
	if err != nil {
		return fmt.Errorf("create training loader: %w", err)
	}
	valLoader, err := dataloader.New(split.Val, processor, dataloader.Config{
		BatchSize:     cfg.Training.BatchSize,
		PrefetchDepth: cfg.Dataset.PrefetchDepth,
		CacheSize:     cfg.Dataset.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("create validation loader: %w", err)
	}

	var augmenter *augment.Augmenter
	if cfg.Training.Augment {
		augmenter = augment.New(cfg.Dataset.Seed, cfg.Training.RotationFactor)
	}
	model, err := layers.NewDamageClassifier(layers.ClassifierConfig{
		InputShape: []int{3, cfg.Dataset.ImageHeight, cfg.Dataset.ImageWidth},
		NumClasses: numClasses,
		Augmenter:  augmenter,
		Seed:       cfg.Dataset.Seed,
	})
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}
	fmt.Println(model.Summary())

	opt, err := newOptimizer(cfg, model)
	if err != nil {
		return err
	}

	store, err := checkpoints.NewFileStore(model, cfg.BestCheckpointPath(), cfg.FinalModelPath())
	if err != nil {
		return err
	}

	runs, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer runs.Close()

	runID, err := runs.BeginRun(ctx, cfg.Dataset.Root, numClasses)
	if err != nil {
		return err
	}
	logger.Info("run registered", "run_id", runID)

	trainer, err := training.NewTrainer(model, training.NewSparseCrossEntropy(), opt, training.Config{
		MaxEpochs: cfg.Training.MaxEpochs,
		Patience:  cfg.Training.Patience,
		Logger:    logger,
		Artifacts: store,
		History:   runs.Recorder(runID),
	})
	if err != nil {
		return err
	}

	result, err := trainer.Fit(ctx, trainLoader, valLoader)
	if err != nil {
		return err
	}

	if err := runs.FinishRun(ctx, runID, result.Reason, result.BestEpoch, result.BestValLoss); err != nil {
		logger.Warn("recording run outcome failed", "run_id", runID, "error", err)
	}

	logger.Info("training finished",
		"reason", result.Reason,
		"epochs", len(result.History),
		"best_epoch", result.BestEpoch,
		"best_val_loss", fmt.Sprintf("%.4f", result.BestValLoss),
		"best_checkpoint", store.BestPath(),
		"final_model", store.FinalPath())
	logger.Info("decode cache", "train", trainLoader.CacheStats().String(), "val", valLoader.CacheStats().String())
	return nil
}

func newOptimizer(cfg *config.Config, model *layers.Sequential) (training.Optimizer, error) {
	switch cfg.Training.Optimizer {
	case "adam":
		return training.NewAdam(model.Params(), training.AdamConfig{LearningRate: cfg.Training.LearningRate})
	case "sgd":
		return training.NewSGD(model.Params(), cfg.Training.LearningRate, cfg.Training.Momentum)
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Training.Optimizer)
	}
}
