package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-CSCI4830/SureSight/layers"
	"github.com/UNO-CSCI4830/SureSight/tensor"
)

func floats(t *testing.T, shape []int, data []float32) *tensor.Tensor {
	t.Helper()
	tens, err := tensor.New(shape, tensor.Float32, data)
	require.NoError(t, err)
	return tens
}

func labels(t *testing.T, data []int32) *tensor.Tensor {
	t.Helper()
	tens, err := tensor.New([]int{len(data)}, tensor.Int32, data)
	require.NoError(t, err)
	return tens
}

func TestSparseCrossEntropyKnownValue(t *testing.T) {
	pred := floats(t, []int{2, 2}, []float32{0.7, 0.3, 0.2, 0.8})
	target := labels(t, []int32{0, 1})

	loss := NewSparseCrossEntropy()
	got, err := loss.Forward(pred, target)
	require.NoError(t, err)

	want := -(math.Log(0.7) + math.Log(0.8)) / 2
	assert.InDelta(t, want, got, 1e-6)
}

func TestSparseCrossEntropyGradient(t *testing.T) {
	pred := floats(t, []int{2, 2}, []float32{0.7, 0.3, 0.2, 0.8})
	target := labels(t, []int32{0, 1})

	loss := NewSparseCrossEntropy()
	grad, err := loss.Backward(pred, target)
	require.NoError(t, err)

	g := grad.Float32s()
	assert.InDelta(t, -1/(2*0.7), g[0], 1e-5)
	assert.InDelta(t, 0, g[1], 1e-6)
	assert.InDelta(t, 0, g[2], 1e-6)
	assert.InDelta(t, -1/(2*0.8), g[3], 1e-5)
}

func TestSparseCrossEntropyClampsZeroProbability(t *testing.T) {
	pred := floats(t, []int{1, 2}, []float32{0, 1})
	target := labels(t, []int32{0})

	loss := NewSparseCrossEntropy()
	got, err := loss.Forward(pred, target)
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0))
	assert.InDelta(t, -math.Log(probEpsilon), got, 1e-3)
}

// Chaining the loss gradient through a softmax layer must yield the
// classic (p - onehot)/N combined gradient on the logits.
func TestSoftmaxCrossEntropyCombinedGradient(t *testing.T) {
	logits := floats(t, []int{2, 3}, []float32{1, 2, 0.5, -1, 0, 1.5})
	target := labels(t, []int32{1, 2})

	sm, err := layers.NewSoftmax("softmax", []int{3})
	require.NoError(t, err)
	probs, err := sm.Forward(logits)
	require.NoError(t, err)

	loss := NewSparseCrossEntropy()
	lossGrad, err := loss.Backward(probs, target)
	require.NoError(t, err)
	logitGrad, err := sm.Backward(lossGrad)
	require.NoError(t, err)

	p := probs.Float32s()
	g := logitGrad.Float32s()
	n := float32(2)
	for i := 0; i < 2; i++ {
		for c := 0; c < 3; c++ {
			want := p[i*3+c] / n
			if int32(c) == target.Int32s()[i] {
				want = (p[i*3+c] - 1) / n
			}
			assert.InDelta(t, want, g[i*3+c], 1e-5)
		}
	}
}

func TestSparseCrossEntropyValidation(t *testing.T) {
	loss := NewSparseCrossEntropy()

	t.Run("batch mismatch", func(t *testing.T) {
		pred := floats(t, []int{2, 2}, []float32{1, 0, 0, 1})
		_, err := loss.Forward(pred, labels(t, []int32{0}))
		assert.Error(t, err)
	})

	t.Run("label out of range", func(t *testing.T) {
		pred := floats(t, []int{1, 2}, []float32{1, 0})
		_, err := loss.Forward(pred, labels(t, []int32{2}))
		assert.Error(t, err)
	})

	t.Run("wrong prediction rank", func(t *testing.T) {
		pred := floats(t, []int{2}, []float32{1, 0})
		_, err := loss.Forward(pred, labels(t, []int32{0, 1}))
		assert.Error(t, err)
	})
}
