package layers

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/UNO-CSCI4830/SureSight/tensor"
	"github.com/UNO-CSCI4830/SureSight/vision/augment"
)

// Sequential chains layers into a feed-forward model. It is immutable
// once built and owns the training/evaluation mode of its layers.
type Sequential struct {
	layers      []Layer
	inputShape  []int
	outputShape []int
	training    bool
}

// Forward runs the batch through every layer in order
func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out := input
	var err error
	for _, layer := range s.layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("forward through %s: %w", layer.Name(), err)
		}
	}
	return out, nil
}

// Backward propagates the output gradient through every layer in reverse
// order, accumulating parameter gradients.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	out := grad
	var err error
	for i := len(s.layers) - 1; i >= 0; i-- {
		out, err = s.layers[i].Backward(out)
		if err != nil {
			return nil, fmt.Errorf("backward through %s: %w", s.layers[i].Name(), err)
		}
	}
	return out, nil
}

// Params returns all trainable parameters in layer order
func (s *Sequential) Params() []*Param {
	var params []*Param
	for _, layer := range s.layers {
		params = append(params, layer.Params()...)
	}
	return params
}

// SetTraining switches the model between training and evaluation mode
func (s *Sequential) SetTraining(training bool) {
	s.training = training
	for _, layer := range s.layers {
		if m, ok := layer.(modal); ok {
			m.SetTraining(training)
		}
	}
}

// IsTraining reports whether the model is in training mode
func (s *Sequential) IsTraining() bool { return s.training }

// InputShape returns the per-sample input shape
func (s *Sequential) InputShape() []int { return s.inputShape }

// OutputShape returns the per-sample output shape
func (s *Sequential) OutputShape() []int { return s.outputShape }

// NumClasses returns the width of the output distribution
func (s *Sequential) NumClasses() int { return s.outputShape[len(s.outputShape)-1] }

// Spec returns the serializable architecture of the model
func (s *Sequential) Spec() ModelSpec {
	spec := ModelSpec{
		InputShape:  append([]int(nil), s.inputShape...),
		OutputShape: append([]int(nil), s.outputShape...),
	}
	for _, layer := range s.layers {
		ls := layer.Spec()
		spec.Layers = append(spec.Layers, ls)
		spec.TotalParameters += ls.ParamCount
	}
	return spec
}

// Summary renders a table of layers, output shapes, and parameter counts
func (s *Sequential) Summary() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Layer", "Type", "Output Shape", "Params"})

	var total int64
	for _, layer := range s.layers {
		ls := layer.Spec()
		t.AppendRow(table.Row{ls.Name, ls.Type, shapeString(ls.OutputShape), ls.ParamCount})
		total += ls.ParamCount
	}
	t.AppendFooter(table.Row{"", "", "Total", total})
	return t.Render()
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, dim := range shape {
		parts[i] = fmt.Sprint(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Builder assembles a Sequential layer by layer, tracking the current
// per-sample shape so layers can size their parameters. The first error
// sticks and is reported by Build.
type Builder struct {
	layers []Layer
	input  []int
	shape  []int
	rng    *rand.Rand
	err    error
}

// NewBuilder starts a model with the given per-sample input shape.
// Weight initialization draws from a RNG seeded with seed, making the
// built model reproducible.
func NewBuilder(inputShape []int, seed int64) *Builder {
	b := &Builder{
		input: append([]int(nil), inputShape...),
		shape: append([]int(nil), inputShape...),
		rng:   rand.New(rand.NewSource(seed)),
	}
	if len(inputShape) == 0 {
		b.err = fmt.Errorf("model input shape cannot be empty")
	}
	return b
}

func (b *Builder) add(layer Layer, err error) *Builder {
	if b.err != nil {
		return b
	}
	if err != nil {
		b.err = err
		return b
	}
	b.layers = append(b.layers, layer)
	b.shape = layer.OutputShape()
	return b
}

// Augment adds a train-mode-only augmentation stage
func (b *Builder) Augment(a *augment.Augmenter, name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewAugment(name, a, b.shape)
	return b.add(layer, err)
}

// Rescale adds a constant pixel rescaling stage
func (b *Builder) Rescale(factor float64, name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewRescale(name, factor, b.shape)
	return b.add(layer, err)
}

// Conv2D adds a stride-1 valid convolution
func (b *Builder) Conv2D(outChannels, kernel int, name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewConv2D(name, outChannels, kernel, b.shape, b.rng)
	return b.add(layer, err)
}

// ReLU adds a ReLU activation
func (b *Builder) ReLU(name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewReLU(name, b.shape)
	return b.add(layer, err)
}

// MaxPool2D adds a non-overlapping max-pooling stage
func (b *Builder) MaxPool2D(size int, name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewMaxPool2D(name, size, b.shape)
	return b.add(layer, err)
}

// Flatten collapses the per-sample shape to a feature vector
func (b *Builder) Flatten(name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewFlatten(name, b.shape)
	return b.add(layer, err)
}

// Dense adds a fully connected layer
func (b *Builder) Dense(units int, name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewDense(name, units, b.shape, b.rng)
	return b.add(layer, err)
}

// Softmax adds a probability-normalizing output activation
func (b *Builder) Softmax(name string) *Builder {
	if b.err != nil {
		return b
	}
	layer, err := NewSoftmax(name, b.shape)
	return b.add(layer, err)
}

// Build finalizes the model
func (b *Builder) Build() (*Sequential, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.layers) == 0 {
		return nil, fmt.Errorf("cannot build an empty model")
	}
	return &Sequential{
		layers:      b.layers,
		inputShape:  b.input,
		outputShape: append([]int(nil), b.shape...),
	}, nil
}

// FromSpec reconstructs a model from a serialized architecture. Weights
// are freshly initialized from seed; callers restoring a checkpoint load
// the persisted values over them afterwards.
func FromSpec(spec ModelSpec, seed int64) (*Sequential, error) {
	b := NewBuilder(spec.InputShape, seed)
	for _, ls := range spec.Layers {
		switch ls.Type {
		case Augment:
			b.Augment(augment.New(seed, ls.RotationFactor), ls.Name)
		case Rescale:
			b.Rescale(ls.Factor, ls.Name)
		case Conv2D:
			b.Conv2D(ls.OutChannels, ls.KernelSize, ls.Name)
		case ReLU:
			b.ReLU(ls.Name)
		case MaxPool2D:
			b.MaxPool2D(ls.PoolSize, ls.Name)
		case Flatten:
			b.Flatten(ls.Name)
		case Dense:
			b.Dense(ls.Units, ls.Name)
		case Softmax:
			b.Softmax(ls.Name)
		default:
			return nil, fmt.Errorf("unknown layer type %q in model spec", ls.Type)
		}
	}
	model, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("rebuild model from spec: %w", err)
	}
	return model, nil
}
