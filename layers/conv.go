package layers

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/UNO-CSCI4830/SureSight/tensor"
)

// conv2dLayer is a 2D convolution over CHW input with stride 1 and no
// padding ("valid"), the configuration used by all three blocks of the
// damage classifier.
type conv2dLayer struct {
	name        string
	inChannels  int
	outChannels int
	kernel      int
	inShape     []int // [C, H, W]
	outShape    []int // [outChannels, H-k+1, W-k+1]

	weight *Param // [outChannels, inChannels, k, k]
	bias   *Param // [outChannels]

	input *tensor.Tensor // cached for backward
}

// NewConv2D creates a convolution layer with Glorot-uniform initialized
// weights drawn from rng.
func NewConv2D(name string, outChannels, kernel int, inputShape []int, rng *rand.Rand) (Layer, error) {
	if len(inputShape) != 3 {
		return nil, fmt.Errorf("layer %s: conv2d requires [C, H, W] input, got %v", name, inputShape)
	}
	if outChannels <= 0 || kernel <= 0 {
		return nil, fmt.Errorf("layer %s: invalid conv2d configuration (channels=%d, kernel=%d)", name, outChannels, kernel)
	}
	inC, h, w := inputShape[0], inputShape[1], inputShape[2]
	outH, outW := h-kernel+1, w-kernel+1
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("layer %s: kernel %d does not fit %dx%d input", name, kernel, h, w)
	}

	fanIn := inC * kernel * kernel
	fanOut := outChannels * kernel * kernel
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	weightData := make([]float32, outChannels*inC*kernel*kernel)
	for i := range weightData {
		weightData[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	weight, err := tensor.New([]int{outChannels, inC, kernel, kernel}, tensor.Float32, weightData)
	if err != nil {
		return nil, err
	}
	weightGrad, _ := tensor.Zeros(weight.Shape, tensor.Float32)

	bias, err := tensor.Zeros([]int{outChannels}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	biasGrad, _ := tensor.Zeros(bias.Shape, tensor.Float32)

	return &conv2dLayer{
		name:        name,
		inChannels:  inC,
		outChannels: outChannels,
		kernel:      kernel,
		inShape:     inputShape,
		outShape:    []int{outChannels, outH, outW},
		weight:      &Param{Name: name + ".weight", Value: weight, Grad: weightGrad},
		bias:        &Param{Name: name + ".bias", Value: bias, Grad: biasGrad},
	}, nil
}

func (l *conv2dLayer) Name() string       { return l.name }
func (l *conv2dLayer) Params() []*Param   { return []*Param{l.weight, l.bias} }
func (l *conv2dLayer) OutputShape() []int { return l.outShape }

func (l *conv2dLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.inShape, l.name); err != nil {
		return nil, err
	}
	l.input = input

	batch := input.Shape[0]
	h, w := l.inShape[1], l.inShape[2]
	outH, outW := l.outShape[1], l.outShape[2]
	k := l.kernel

	out, err := tensor.Zeros(append([]int{batch}, l.outShape...), tensor.Float32)
	if err != nil {
		return nil, err
	}

	in := input.Float32s()
	weights := l.weight.Value.Float32s()
	biases := l.bias.Value.Float32s()
	dst := out.Float32s()

	inImage := l.inChannels * h * w
	outImage := l.outChannels * outH * outW

	for n := 0; n < batch; n++ {
		for o := 0; o < l.outChannels; o++ {
			for y := 0; y < outH; y++ {
				for x := 0; x < outW; x++ {
					sum := biases[o]
					for c := 0; c < l.inChannels; c++ {
						inPlane := in[n*inImage+c*h*w:]
						wPlane := weights[(o*l.inChannels+c)*k*k:]
						for i := 0; i < k; i++ {
							inRow := inPlane[(y+i)*w+x:]
							wRow := wPlane[i*k:]
							for j := 0; j < k; j++ {
								sum += inRow[j] * wRow[j]
							}
						}
					}
					dst[n*outImage+o*outH*outW+y*outW+x] = sum
				}
			}
		}
	}
	return out, nil
}

func (l *conv2dLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.input == nil {
		return nil, fmt.Errorf("layer %s: backward called before forward", l.name)
	}

	batch := grad.Shape[0]
	h, w := l.inShape[1], l.inShape[2]
	outH, outW := l.outShape[1], l.outShape[2]
	k := l.kernel

	inGrad, err := tensor.Zeros(l.input.Shape, tensor.Float32)
	if err != nil {
		return nil, err
	}

	in := l.input.Float32s()
	weights := l.weight.Value.Float32s()
	g := grad.Float32s()
	dIn := inGrad.Float32s()
	dW := l.weight.Grad.Float32s()
	dB := l.bias.Grad.Float32s()

	inImage := l.inChannels * h * w
	outImage := l.outChannels * outH * outW

	for n := 0; n < batch; n++ {
		for o := 0; o < l.outChannels; o++ {
			for y := 0; y < outH; y++ {
				for x := 0; x < outW; x++ {
					gv := g[n*outImage+o*outH*outW+y*outW+x]
					if gv == 0 {
						continue
					}
					dB[o] += gv
					for c := 0; c < l.inChannels; c++ {
						inPlane := in[n*inImage+c*h*w:]
						dInPlane := dIn[n*inImage+c*h*w:]
						wBase := (o*l.inChannels + c) * k * k
						for i := 0; i < k; i++ {
							for j := 0; j < k; j++ {
								src := (y+i)*w + x + j
								dW[wBase+i*k+j] += inPlane[src] * gv
								dInPlane[src] += weights[wBase+i*k+j] * gv
							}
						}
					}
				}
			}
		}
	}
	return inGrad, nil
}

func (l *conv2dLayer) Spec() LayerSpec {
	return LayerSpec{
		Type:        Conv2D,
		Name:        l.name,
		OutChannels: l.outChannels,
		KernelSize:  l.kernel,
		InputShape:  l.inShape,
		OutputShape: l.outShape,
		ParamCount:  int64(l.weight.Value.NumElems + l.bias.Value.NumElems),
	}
}

// maxPool2dLayer downsamples each channel plane by taking the maximum
// over non-overlapping size x size windows (stride equals window size).
type maxPool2dLayer struct {
	name     string
	size     int
	inShape  []int
	outShape []int
	argmax   []int // flat source index per output element
}

// NewMaxPool2D creates a max-pooling layer
func NewMaxPool2D(name string, size int, inputShape []int) (Layer, error) {
	if len(inputShape) != 3 {
		return nil, fmt.Errorf("layer %s: maxpool2d requires [C, H, W] input, got %v", name, inputShape)
	}
	if size <= 0 {
		return nil, fmt.Errorf("layer %s: invalid pool size %d", name, size)
	}
	c, h, w := inputShape[0], inputShape[1], inputShape[2]
	outH, outW := h/size, w/size
	if outH == 0 || outW == 0 {
		return nil, fmt.Errorf("layer %s: pool size %d does not fit %dx%d input", name, size, h, w)
	}
	return &maxPool2dLayer{
		name:     name,
		size:     size,
		inShape:  inputShape,
		outShape: []int{c, outH, outW},
	}, nil
}

func (l *maxPool2dLayer) Name() string       { return l.name }
func (l *maxPool2dLayer) Params() []*Param   { return nil }
func (l *maxPool2dLayer) OutputShape() []int { return l.outShape }

func (l *maxPool2dLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.inShape, l.name); err != nil {
		return nil, err
	}

	batch := input.Shape[0]
	c, h, w := l.inShape[0], l.inShape[1], l.inShape[2]
	outH, outW := l.outShape[1], l.outShape[2]
	s := l.size

	out, err := tensor.Zeros(append([]int{batch}, l.outShape...), tensor.Float32)
	if err != nil {
		return nil, err
	}

	in := input.Float32s()
	dst := out.Float32s()
	if len(l.argmax) < out.NumElems {
		l.argmax = make([]int, out.NumElems)
	}

	outIdx := 0
	for n := 0; n < batch; n++ {
		for ch := 0; ch < c; ch++ {
			plane := (n*c + ch) * h * w
			for y := 0; y < outH; y++ {
				for x := 0; x < outW; x++ {
					best := plane + (y*s)*w + x*s
					maxVal := in[best]
					for i := 0; i < s; i++ {
						for j := 0; j < s; j++ {
							idx := plane + (y*s+i)*w + x*s + j
							if in[idx] > maxVal {
								maxVal = in[idx]
								best = idx
							}
						}
					}
					dst[outIdx] = maxVal
					l.argmax[outIdx] = best
					outIdx++
				}
			}
		}
	}
	return out, nil
}

func (l *maxPool2dLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if len(l.argmax) < grad.NumElems {
		return nil, fmt.Errorf("layer %s: backward called before forward", l.name)
	}
	inGrad, err := tensor.Zeros(append([]int{grad.Shape[0]}, l.inShape...), tensor.Float32)
	if err != nil {
		return nil, err
	}
	g := grad.Float32s()
	dIn := inGrad.Float32s()
	for i, gv := range g {
		dIn[l.argmax[i]] += gv
	}
	return inGrad, nil
}

func (l *maxPool2dLayer) Spec() LayerSpec {
	return LayerSpec{
		Type:        MaxPool2D,
		Name:        l.name,
		PoolSize:    l.size,
		InputShape:  l.inShape,
		OutputShape: l.outShape,
	}
}
