package training

// BestTracker follows the lowest validation loss seen so far. Only a
// strict decrease counts as an improvement, so plateaus do not refresh
// the best checkpoint.
type BestTracker struct {
	loss  float64
	epoch int
	seen  bool
}

// Observe records one epoch's validation loss and reports whether it
// improved on the best so far.
func (bt *BestTracker) Observe(epoch int, valLoss float64) bool {
	if bt.seen && valLoss >= bt.loss {
		return false
	}
	bt.loss = valLoss
	bt.epoch = epoch
	bt.seen = true
	return true
}

// BestLoss returns the lowest validation loss observed
func (bt *BestTracker) BestLoss() float64 { return bt.loss }

// BestEpoch returns the epoch that produced the lowest validation loss
func (bt *BestTracker) BestEpoch() int { return bt.epoch }

// EarlyStopping stops training after Patience consecutive epochs
// without improvement. A Patience of zero disables it.
type EarlyStopping struct {
	Patience int
	wait     int
}

// Observe records whether the epoch improved and reports whether
// training should stop.
func (es *EarlyStopping) Observe(improved bool) bool {
	if improved {
		es.wait = 0
		return false
	}
	es.wait++
	return es.Patience > 0 && es.wait >= es.Patience
}

// Wait returns the number of consecutive epochs without improvement
func (es *EarlyStopping) Wait() int { return es.wait }
