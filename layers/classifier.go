package layers

import (
	"fmt"

	"github.com/UNO-CSCI4830/SureSight/vision/augment"
)

// ClassifierConfig parameterizes the damage classifier architecture
type ClassifierConfig struct {
	InputShape []int // per-sample [C, H, W]
	NumClasses int
	Augmenter  *augment.Augmenter // optional; training-time augmentation when set
	Seed       int64              // weight initialization seed
}

// NewDamageClassifier builds the structural-damage classification network:
// optional augmentation, 1/255 pixel rescaling, three conv/ReLU/max-pool
// blocks widening 16 -> 32 -> 64, then a 128-unit dense layer and a
// softmax head over the damage categories.
func NewDamageClassifier(cfg ClassifierConfig) (*Sequential, error) {
	if len(cfg.InputShape) != 3 || cfg.InputShape[0] != 3 {
		return nil, fmt.Errorf("classifier requires [3, H, W] input shape, got %v", cfg.InputShape)
	}
	if cfg.NumClasses < 2 {
		return nil, fmt.Errorf("classifier requires at least 2 classes, got %d", cfg.NumClasses)
	}

	b := NewBuilder(cfg.InputShape, cfg.Seed)
	if cfg.Augmenter != nil {
		b.Augment(cfg.Augmenter, "augment")
	}
	b.Rescale(1.0/255.0, "rescale").
		Conv2D(16, 3, "conv1").ReLU("relu1").MaxPool2D(2, "pool1").
		Conv2D(32, 3, "conv2").ReLU("relu2").MaxPool2D(2, "pool2").
		Conv2D(64, 3, "conv3").ReLU("relu3").MaxPool2D(2, "pool3").
		Flatten("flatten").
		Dense(128, "fc1").ReLU("relu_fc1").
		Dense(cfg.NumClasses, "output").
		Softmax("softmax")

	return b.Build()
}
