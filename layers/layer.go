// Package layers implements the neural network building blocks for the
// damage classifier: parameterized layers with explicit forward and
// backward passes, a Sequential container, and a spec format that lets a
// persisted model be reconstructed without access to training code.
package layers

import (
	"fmt"

	"github.com/UNO-CSCI4830/SureSight/tensor"
)

// LayerType identifies a layer kind in a model spec
type LayerType string

const (
	Augment   LayerType = "augment"
	Rescale   LayerType = "rescale"
	Conv2D    LayerType = "conv2d"
	ReLU      LayerType = "relu"
	MaxPool2D LayerType = "maxpool2d"
	Flatten   LayerType = "flatten"
	Dense     LayerType = "dense"
	Softmax   LayerType = "softmax"
)

// Param is a trainable parameter tensor paired with its gradient
// accumulator. Both tensors are Float32 and share a shape.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// ZeroGrad resets the gradient accumulator
func (p *Param) ZeroGrad() {
	grad := p.Grad.Float32s()
	for i := range grad {
		grad[i] = 0
	}
}

// Layer is a single stage of the model. Forward consumes a batch and
// caches whatever it needs for the matching Backward call; Backward
// consumes the gradient of the loss with respect to this layer's output
// and returns the gradient with respect to its input, accumulating
// parameter gradients along the way.
type Layer interface {
	Name() string
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Backward(grad *tensor.Tensor) (*tensor.Tensor, error)
	Params() []*Param
	Spec() LayerSpec
	OutputShape() []int // per-sample shape, batch dimension excluded
}

// modal layers change behavior between training and evaluation
type modal interface {
	SetTraining(training bool)
}

// LayerSpec is the serializable configuration of a single layer
type LayerSpec struct {
	Type LayerType `json:"type"`
	Name string    `json:"name"`

	// Type-specific fields
	Factor         float64 `json:"factor,omitempty"`          // rescale
	RotationFactor float64 `json:"rotation_factor,omitempty"` // augment
	OutChannels    int     `json:"out_channels,omitempty"`    // conv2d
	KernelSize     int     `json:"kernel_size,omitempty"`     // conv2d
	PoolSize       int     `json:"pool_size,omitempty"`       // maxpool2d
	Units          int     `json:"units,omitempty"`           // dense

	// Computed during build
	InputShape  []int `json:"input_shape,omitempty"`
	OutputShape []int `json:"output_shape,omitempty"`
	ParamCount  int64 `json:"param_count,omitempty"`
}

// ModelSpec is the serializable architecture of a complete model
type ModelSpec struct {
	InputShape      []int       `json:"input_shape"`
	OutputShape     []int       `json:"output_shape"`
	Layers          []LayerSpec `json:"layers"`
	TotalParameters int64       `json:"total_parameters"`
}

// NumClasses returns the width of the model's output distribution
func (ms *ModelSpec) NumClasses() (int, error) {
	if len(ms.OutputShape) != 1 {
		return 0, fmt.Errorf("model output shape %v is not a class distribution", ms.OutputShape)
	}
	return ms.OutputShape[0], nil
}

func checkInput(input *tensor.Tensor, want []int, name string) error {
	if input.DType != tensor.Float32 {
		return fmt.Errorf("layer %s: expected Float32 input, got %s", name, input.DType)
	}
	if len(input.Shape) != len(want)+1 {
		return fmt.Errorf("layer %s: expected input rank %d (batch + %v), got shape %v", name, len(want)+1, want, input.Shape)
	}
	for i, dim := range want {
		if input.Shape[i+1] != dim {
			return fmt.Errorf("layer %s: expected input shape %v per sample, got %v", name, want, input.Shape[1:])
		}
	}
	return nil
}
