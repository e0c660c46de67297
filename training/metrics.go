package training

import "github.com/UNO-CSCI4830/SureSight/tensor"

// countCorrect counts predictions whose argmax matches the label. Ties
// resolve to the lowest class index.
func countCorrect(pred, target *tensor.Tensor) int {
	probs := pred.Float32s()
	labels := target.Int32s()
	classes := pred.Shape[1]

	correct := 0
	for i, label := range labels {
		row := probs[i*classes : (i+1)*classes]
		best := 0
		for c := 1; c < classes; c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		if int32(best) == label {
			correct++
		}
	}
	return correct
}
