package layers

import (
	"fmt"
	"math"

	"github.com/UNO-CSCI4830/SureSight/tensor"
	"github.com/UNO-CSCI4830/SureSight/vision/augment"
)

// augmentLayer applies stochastic geometric transforms to each image in
// the batch while the model is in training mode. In evaluation mode it is
// the identity, so validation and inference see un-augmented inputs.
type augmentLayer struct {
	name      string
	augmenter *augment.Augmenter
	shape     []int // [C, H, W]
	training  bool
}

// NewAugment creates an augmentation stage backed by the given augmenter
func NewAugment(name string, augmenter *augment.Augmenter, inputShape []int) (Layer, error) {
	if len(inputShape) != 3 {
		return nil, fmt.Errorf("layer %s: augmentation requires [C, H, W] input, got %v", name, inputShape)
	}
	if augmenter == nil {
		return nil, fmt.Errorf("layer %s: augmenter is required", name)
	}
	return &augmentLayer{name: name, augmenter: augmenter, shape: inputShape}, nil
}

func (l *augmentLayer) Name() string       { return l.name }
func (l *augmentLayer) Params() []*Param   { return nil }
func (l *augmentLayer) OutputShape() []int { return l.shape }
func (l *augmentLayer) SetTraining(t bool) { l.training = t }

func (l *augmentLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.shape, l.name); err != nil {
		return nil, err
	}
	if !l.training {
		return input, nil
	}

	out := input.Clone()
	c, h, w := l.shape[0], l.shape[1], l.shape[2]
	imageSize := c * h * w
	data := out.Float32s()
	for n := 0; n < input.Shape[0]; n++ {
		l.augmenter.Apply(data[n*imageSize:(n+1)*imageSize], c, h, w)
	}
	return out, nil
}

// Backward passes the gradient through unchanged. The augmentation stage
// is always first in the model, and gradients with respect to raw pixels
// are never consumed.
func (l *augmentLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	return grad, nil
}

func (l *augmentLayer) Spec() LayerSpec {
	return LayerSpec{
		Type:           Augment,
		Name:           l.name,
		RotationFactor: l.augmenter.RotationFactor(),
		InputShape:     l.shape,
		OutputShape:    l.shape,
	}
}

// rescaleLayer multiplies every element by a constant factor. Used to
// normalize 8-bit pixel values into [0, 1] with factor 1/255.
type rescaleLayer struct {
	name   string
	factor float32
	shape  []int
}

// NewRescale creates a rescaling stage
func NewRescale(name string, factor float64, inputShape []int) (Layer, error) {
	if factor == 0 {
		return nil, fmt.Errorf("layer %s: rescale factor cannot be zero", name)
	}
	return &rescaleLayer{name: name, factor: float32(factor), shape: inputShape}, nil
}

func (l *rescaleLayer) Name() string       { return l.name }
func (l *rescaleLayer) Params() []*Param   { return nil }
func (l *rescaleLayer) OutputShape() []int { return l.shape }

func (l *rescaleLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.shape, l.name); err != nil {
		return nil, err
	}
	out := input.Clone()
	data := out.Float32s()
	for i := range data {
		data[i] *= l.factor
	}
	return out, nil
}

func (l *rescaleLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	out := grad.Clone()
	data := out.Float32s()
	for i := range data {
		data[i] *= l.factor
	}
	return out, nil
}

func (l *rescaleLayer) Spec() LayerSpec {
	return LayerSpec{
		Type:        Rescale,
		Name:        l.name,
		Factor:      float64(l.factor),
		InputShape:  l.shape,
		OutputShape: l.shape,
	}
}

// reluLayer applies max(0, x) elementwise
type reluLayer struct {
	name  string
	shape []int
	mask  []bool // true where input was positive
}

// NewReLU creates a ReLU activation
func NewReLU(name string, inputShape []int) (Layer, error) {
	return &reluLayer{name: name, shape: inputShape}, nil
}

func (l *reluLayer) Name() string       { return l.name }
func (l *reluLayer) Params() []*Param   { return nil }
func (l *reluLayer) OutputShape() []int { return l.shape }

func (l *reluLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.shape, l.name); err != nil {
		return nil, err
	}
	out := input.Clone()
	data := out.Float32s()
	if len(l.mask) < len(data) {
		l.mask = make([]bool, len(data))
	}
	for i, v := range data {
		if v > 0 {
			l.mask[i] = true
		} else {
			l.mask[i] = false
			data[i] = 0
		}
	}
	return out, nil
}

func (l *reluLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	out := grad.Clone()
	data := out.Float32s()
	if len(l.mask) < len(data) {
		return nil, fmt.Errorf("layer %s: backward called before forward", l.name)
	}
	for i := range data {
		if !l.mask[i] {
			data[i] = 0
		}
	}
	return out, nil
}

func (l *reluLayer) Spec() LayerSpec {
	return LayerSpec{Type: ReLU, Name: l.name, InputShape: l.shape, OutputShape: l.shape}
}

// flattenLayer collapses each sample to a single feature vector
type flattenLayer struct {
	name     string
	inShape  []int
	outShape []int
}

// NewFlatten creates a flatten stage
func NewFlatten(name string, inputShape []int) (Layer, error) {
	n := 1
	for _, dim := range inputShape {
		n *= dim
	}
	return &flattenLayer{name: name, inShape: inputShape, outShape: []int{n}}, nil
}

func (l *flattenLayer) Name() string       { return l.name }
func (l *flattenLayer) Params() []*Param   { return nil }
func (l *flattenLayer) OutputShape() []int { return l.outShape }

func (l *flattenLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.inShape, l.name); err != nil {
		return nil, err
	}
	return input.Reshape([]int{input.Shape[0], l.outShape[0]})
}

func (l *flattenLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	shape := append([]int{grad.Shape[0]}, l.inShape...)
	return grad.Reshape(shape)
}

func (l *flattenLayer) Spec() LayerSpec {
	return LayerSpec{Type: Flatten, Name: l.name, InputShape: l.inShape, OutputShape: l.outShape}
}

// softmaxLayer normalizes each row into a probability distribution
type softmaxLayer struct {
	name   string
	shape  []int
	output []float32 // cached probabilities from the last forward pass
}

// NewSoftmax creates a softmax activation over the last (feature) axis
func NewSoftmax(name string, inputShape []int) (Layer, error) {
	if len(inputShape) != 1 {
		return nil, fmt.Errorf("layer %s: softmax requires flat [features] input, got %v", name, inputShape)
	}
	return &softmaxLayer{name: name, shape: inputShape}, nil
}

func (l *softmaxLayer) Name() string       { return l.name }
func (l *softmaxLayer) Params() []*Param   { return nil }
func (l *softmaxLayer) OutputShape() []int { return l.shape }

func (l *softmaxLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.shape, l.name); err != nil {
		return nil, err
	}
	out := input.Clone()
	data := out.Float32s()
	classes := l.shape[0]

	for n := 0; n < input.Shape[0]; n++ {
		row := data[n*classes : (n+1)*classes]

		// Subtract the row max for numerical stability
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sum float64
		for i, v := range row {
			e := math.Exp(float64(v - maxVal))
			row[i] = float32(e)
			sum += e
		}
		for i := range row {
			row[i] = float32(float64(row[i]) / sum)
		}
	}

	l.output = append(l.output[:0], data...)
	return out, nil
}

func (l *softmaxLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if len(l.output) < grad.NumElems {
		return nil, fmt.Errorf("layer %s: backward called before forward", l.name)
	}
	out := grad.Clone()
	data := out.Float32s()
	classes := l.shape[0]

	// dL/dx_i = p_i * (g_i - sum_j g_j * p_j)
	for n := 0; n < grad.Shape[0]; n++ {
		g := data[n*classes : (n+1)*classes]
		p := l.output[n*classes : (n+1)*classes]

		var dot float64
		for i := range g {
			dot += float64(g[i]) * float64(p[i])
		}
		for i := range g {
			g[i] = p[i] * (g[i] - float32(dot))
		}
	}
	return out, nil
}

func (l *softmaxLayer) Spec() LayerSpec {
	return LayerSpec{Type: Softmax, Name: l.name, InputShape: l.shape, OutputShape: l.shape}
}
