package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-CSCI4830/SureSight/layers"
	"github.com/UNO-CSCI4830/SureSight/tensor"
)

func newParam(t *testing.T, name string, values []float32) *layers.Param {
	t.Helper()
	value, err := tensor.New([]int{len(values)}, tensor.Float32, values)
	require.NoError(t, err)
	grad, err := tensor.Zeros([]int{len(values)}, tensor.Float32)
	require.NoError(t, err)
	return &layers.Param{Name: name, Value: value, Grad: grad}
}

func TestAdamDefaults(t *testing.T) {
	p := newParam(t, "w", []float32{1})
	opt, err := NewAdam([]*layers.Param{p}, AdamConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 0.001, opt.LR(), 1e-12)
}

// Minimizing f(x) = x^2 via its gradient 2x must pull x toward zero.
func TestAdamConvergesOnQuadratic(t *testing.T) {
	p := newParam(t, "x", []float32{5})
	opt, err := NewAdam([]*layers.Param{p}, AdamConfig{LearningRate: 0.1})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		opt.ZeroGrad()
		x := p.Value.Float32s()[0]
		p.Grad.Float32s()[0] = 2 * x
		opt.Step()
	}
	assert.Less(t, float64(p.Value.Float32s()[0]), 0.5)
	assert.Greater(t, float64(p.Value.Float32s()[0]), -0.5)
}

// The first Adam step moves by exactly the learning rate, regardless of
// gradient scale, because of bias correction.
func TestAdamFirstStepMagnitude(t *testing.T) {
	p := newParam(t, "x", []float32{0})
	opt, err := NewAdam([]*layers.Param{p}, AdamConfig{LearningRate: 0.01})
	require.NoError(t, err)

	p.Grad.Float32s()[0] = 42
	opt.Step()
	assert.InDelta(t, -0.01, p.Value.Float32s()[0], 1e-4)
}

func TestSGDStep(t *testing.T) {
	p := newParam(t, "x", []float32{1})
	opt, err := NewSGD([]*layers.Param{p}, 0.1, 0)
	require.NoError(t, err)

	p.Grad.Float32s()[0] = 1
	opt.Step()
	assert.InDelta(t, 0.9, p.Value.Float32s()[0], 1e-6)
}

func TestSGDMomentumAccumulates(t *testing.T) {
	p := newParam(t, "x", []float32{0})
	opt, err := NewSGD([]*layers.Param{p}, 0.1, 0.9)
	require.NoError(t, err)

	// Constant gradient: velocity grows, so the second step is larger
	p.Grad.Float32s()[0] = 1
	opt.Step()
	afterFirst := p.Value.Float32s()[0]
	opt.Step()
	secondDelta := p.Value.Float32s()[0] - afterFirst
	assert.InDelta(t, -0.1, afterFirst, 1e-6)
	assert.InDelta(t, -0.19, secondDelta, 1e-6)
}

func TestZeroGradClearsAccumulators(t *testing.T) {
	p := newParam(t, "x", []float32{1, 2})
	opt, err := NewAdam([]*layers.Param{p}, AdamConfig{})
	require.NoError(t, err)

	p.Grad.Float32s()[0] = 3
	p.Grad.Float32s()[1] = 4
	opt.ZeroGrad()
	assert.Equal(t, []float32{0, 0}, p.Grad.Float32s())
}

func TestOptimizerValidation(t *testing.T) {
	_, err := NewAdam(nil, AdamConfig{})
	assert.Error(t, err)

	p := newParam(t, "x", []float32{1})
	_, err = NewAdam([]*layers.Param{p}, AdamConfig{LearningRate: -1})
	assert.Error(t, err)

	_, err = NewSGD([]*layers.Param{p}, 0, 0)
	assert.Error(t, err)

	_, err = NewSGD([]*layers.Param{p}, 0.1, 1)
	assert.Error(t, err)
}

func TestSetLR(t *testing.T) {
	p := newParam(t, "x", []float32{1})
	opt, err := NewAdam([]*layers.Param{p}, AdamConfig{})
	require.NoError(t, err)

	opt.SetLR(0.05)
	assert.InDelta(t, 0.05, opt.LR(), 1e-12)
}
