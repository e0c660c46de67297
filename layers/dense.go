package layers

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/UNO-CSCI4830/SureSight/tensor"
)

// denseLayer is a fully connected layer: y = xW + b
type denseLayer struct {
	name     string
	inSize   int
	outSize  int
	inShape  []int
	outShape []int

	weight *Param // [inSize, outSize]
	bias   *Param // [outSize]

	input *tensor.Tensor // cached for backward
}

// NewDense creates a fully connected layer with Glorot-uniform
// initialized weights drawn from rng.
func NewDense(name string, units int, inputShape []int, rng *rand.Rand) (Layer, error) {
	if len(inputShape) != 1 {
		return nil, fmt.Errorf("layer %s: dense requires flat [features] input, got %v", name, inputShape)
	}
	if units <= 0 {
		return nil, fmt.Errorf("layer %s: invalid unit count %d", name, units)
	}
	inSize := inputShape[0]

	bound := math.Sqrt(6.0 / float64(inSize+units))
	weightData := make([]float32, inSize*units)
	for i := range weightData {
		weightData[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	weight, err := tensor.New([]int{inSize, units}, tensor.Float32, weightData)
	if err != nil {
		return nil, err
	}
	weightGrad, _ := tensor.Zeros(weight.Shape, tensor.Float32)

	bias, err := tensor.Zeros([]int{units}, tensor.Float32)
	if err != nil {
		return nil, err
	}
	biasGrad, _ := tensor.Zeros(bias.Shape, tensor.Float32)

	return &denseLayer{
		name:     name,
		inSize:   inSize,
		outSize:  units,
		inShape:  inputShape,
		outShape: []int{units},
		weight:   &Param{Name: name + ".weight", Value: weight, Grad: weightGrad},
		bias:     &Param{Name: name + ".bias", Value: bias, Grad: biasGrad},
	}, nil
}

func (l *denseLayer) Name() string       { return l.name }
func (l *denseLayer) Params() []*Param   { return []*Param{l.weight, l.bias} }
func (l *denseLayer) OutputShape() []int { return l.outShape }

func (l *denseLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkInput(input, l.inShape, l.name); err != nil {
		return nil, err
	}
	l.input = input

	batch := input.Shape[0]
	out, err := tensor.Zeros([]int{batch, l.outSize}, tensor.Float32)
	if err != nil {
		return nil, err
	}

	in := input.Float32s()
	weights := l.weight.Value.Float32s()
	biases := l.bias.Value.Float32s()
	dst := out.Float32s()

	for n := 0; n < batch; n++ {
		row := in[n*l.inSize : (n+1)*l.inSize]
		outRow := dst[n*l.outSize : (n+1)*l.outSize]
		copy(outRow, biases)
		for i, x := range row {
			if x == 0 {
				continue
			}
			wRow := weights[i*l.outSize : (i+1)*l.outSize]
			for j, wv := range wRow {
				outRow[j] += x * wv
			}
		}
	}
	return out, nil
}

func (l *denseLayer) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if l.input == nil {
		return nil, fmt.Errorf("layer %s: backward called before forward", l.name)
	}

	batch := grad.Shape[0]
	inGrad, err := tensor.Zeros([]int{batch, l.inSize}, tensor.Float32)
	if err != nil {
		return nil, err
	}

	in := l.input.Float32s()
	weights := l.weight.Value.Float32s()
	g := grad.Float32s()
	dIn := inGrad.Float32s()
	dW := l.weight.Grad.Float32s()
	dB := l.bias.Grad.Float32s()

	for n := 0; n < batch; n++ {
		gRow := g[n*l.outSize : (n+1)*l.outSize]
		inRow := in[n*l.inSize : (n+1)*l.inSize]
		dInRow := dIn[n*l.inSize : (n+1)*l.inSize]

		for j, gv := range gRow {
			dB[j] += gv
		}
		for i, x := range inRow {
			wRow := weights[i*l.outSize : (i+1)*l.outSize]
			dWRow := dW[i*l.outSize : (i+1)*l.outSize]
			var acc float32
			for j, gv := range gRow {
				dWRow[j] += x * gv
				acc += wRow[j] * gv
			}
			dInRow[i] = acc
		}
	}
	return inGrad, nil
}

func (l *denseLayer) Spec() LayerSpec {
	return LayerSpec{
		Type:        Dense,
		Name:        l.name,
		Units:       l.outSize,
		InputShape:  l.inShape,
		OutputShape: l.outShape,
		ParamCount:  int64(l.weight.Value.NumElems + l.bias.Value.NumElems),
	}
}
