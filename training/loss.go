package training

import (
	"fmt"
	"math"

	"github.com/UNO-CSCI4830/SureSight/tensor"
)

// Loss scores a batch of predictions against integer class labels.
// Forward returns the mean loss over the batch; Backward returns the
// gradient of that mean with respect to the predictions.
type Loss interface {
	Forward(pred, target *tensor.Tensor) (float64, error)
	Backward(pred, target *tensor.Tensor) (*tensor.Tensor, error)
}

// probEpsilon guards the log against exactly-zero probabilities
const probEpsilon = 1e-7

// SparseCrossEntropy is cross-entropy over a probability distribution
// with integer labels, so targets never need one-hot expansion. The
// predictions are expected to already be normalized (softmax output).
type SparseCrossEntropy struct{}

// NewSparseCrossEntropy creates the loss
func NewSparseCrossEntropy() *SparseCrossEntropy { return &SparseCrossEntropy{} }

// Forward computes mean(-log p[y]) over the batch
func (l *SparseCrossEntropy) Forward(pred, target *tensor.Tensor) (float64, error) {
	probs, labels, classes, err := l.check(pred, target)
	if err != nil {
		return 0, err
	}

	var total float64
	for i, label := range labels {
		p := float64(probs[i*classes+int(label)])
		total += -math.Log(math.Max(p, probEpsilon))
	}
	return total / float64(len(labels)), nil
}

// Backward computes the gradient of the mean loss with respect to the
// predicted probabilities: -1/(N*p[y]) at each sample's target class,
// zero elsewhere.
func (l *SparseCrossEntropy) Backward(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	probs, labels, classes, err := l.check(pred, target)
	if err != nil {
		return nil, err
	}

	grad, err := tensor.Zeros(pred.Shape, tensor.Float32)
	if err != nil {
		return nil, err
	}
	g := grad.Float32s()
	n := float64(len(labels))
	for i, label := range labels {
		idx := i*classes + int(label)
		p := math.Max(float64(probs[idx]), probEpsilon)
		g[idx] = float32(-1 / (n * p))
	}
	return grad, nil
}

func (l *SparseCrossEntropy) check(pred, target *tensor.Tensor) ([]float32, []int32, int, error) {
	if pred.DType != tensor.Float32 || len(pred.Shape) != 2 {
		return nil, nil, 0, fmt.Errorf("loss expects [batch, classes] Float32 predictions, got %v %s", pred.Shape, pred.DType)
	}
	if target.DType != tensor.Int32 || len(target.Shape) != 1 {
		return nil, nil, 0, fmt.Errorf("loss expects [batch] Int32 labels, got %v %s", target.Shape, target.DType)
	}
	if pred.Shape[0] != target.Shape[0] {
		return nil, nil, 0, fmt.Errorf("batch mismatch: %d predictions vs %d labels", pred.Shape[0], target.Shape[0])
	}
	classes := pred.Shape[1]
	labels := target.Int32s()
	for i, label := range labels {
		if label < 0 || int(label) >= classes {
			return nil, nil, 0, fmt.Errorf("label %d at index %d outside [0, %d)", label, i, classes)
		}
	}
	return pred.Float32s(), labels, classes, nil
}
