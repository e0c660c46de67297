package training

import (
	"fmt"
	"math"

	"github.com/UNO-CSCI4830/SureSight/layers"
)

// Optimizer updates model parameters from their accumulated gradients
type Optimizer interface {
	Step()
	ZeroGrad()
	LR() float64
	SetLR(lr float64)
}

// AdamConfig holds Adam hyperparameters; zero fields take the usual
// defaults (lr 0.001, beta1 0.9, beta2 0.999, epsilon 1e-8).
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// Adam is adaptive moment estimation with bias correction. Moment
// buffers are kept in float64 so long runs don't drift.
type Adam struct {
	params []*layers.Param
	cfg    AdamConfig
	m      [][]float64
	v      [][]float64
	step   int
}

// NewAdam creates an Adam optimizer over the given parameters
func NewAdam(params []*layers.Param, cfg AdamConfig) (*Adam, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("optimizer requires at least one parameter")
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.001
	}
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-8
	}
	if cfg.LearningRate < 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %g", cfg.LearningRate)
	}

	a := &Adam{
		params: params,
		cfg:    cfg,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}
	for i, p := range params {
		n := len(p.Value.Float32s())
		a.m[i] = make([]float64, n)
		a.v[i] = make([]float64, n)
	}
	return a, nil
}

// Step applies one Adam update from the accumulated gradients
func (a *Adam) Step() {
	a.step++
	bc1 := 1 - math.Pow(a.cfg.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.cfg.Beta2, float64(a.step))

	for i, p := range a.params {
		value := p.Value.Float32s()
		grad := p.Grad.Float32s()
		m, v := a.m[i], a.v[i]
		for j := range value {
			g := float64(grad[j])
			m[j] = a.cfg.Beta1*m[j] + (1-a.cfg.Beta1)*g
			v[j] = a.cfg.Beta2*v[j] + (1-a.cfg.Beta2)*g*g
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			value[j] -= float32(a.cfg.LearningRate * mHat / (math.Sqrt(vHat) + a.cfg.Epsilon))
		}
	}
}

// ZeroGrad clears every parameter's gradient accumulator
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// LR returns the current learning rate
func (a *Adam) LR() float64 { return a.cfg.LearningRate }

// SetLR changes the learning rate for subsequent steps
func (a *Adam) SetLR(lr float64) { a.cfg.LearningRate = lr }

// SGD is plain stochastic gradient descent with optional momentum
type SGD struct {
	params   []*layers.Param
	lr       float64
	momentum float64
	velocity [][]float64
}

// NewSGD creates an SGD optimizer over the given parameters
func NewSGD(params []*layers.Param, lr, momentum float64) (*SGD, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("optimizer requires at least one parameter")
	}
	if lr <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %g", lr)
	}
	if momentum < 0 || momentum >= 1 {
		return nil, fmt.Errorf("momentum must be in [0, 1), got %g", momentum)
	}

	s := &SGD{
		params:   params,
		lr:       lr,
		momentum: momentum,
		velocity: make([][]float64, len(params)),
	}
	for i, p := range params {
		s.velocity[i] = make([]float64, len(p.Value.Float32s()))
	}
	return s, nil
}

// Step applies one SGD update from the accumulated gradients
func (s *SGD) Step() {
	for i, p := range s.params {
		value := p.Value.Float32s()
		grad := p.Grad.Float32s()
		vel := s.velocity[i]
		for j := range value {
			vel[j] = s.momentum*vel[j] + float64(grad[j])
			value[j] -= float32(s.lr * vel[j])
		}
	}
}

// ZeroGrad clears every parameter's gradient accumulator
func (s *SGD) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// LR returns the current learning rate
func (s *SGD) LR() float64 { return s.lr }

// SetLR changes the learning rate for subsequent steps
func (s *SGD) SetLR(lr float64) { s.lr = lr }
