package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestTrackerStrictImprovement(t *testing.T) {
	bt := &BestTracker{}

	assert.True(t, bt.Observe(1, 0.9), "first observation always improves")
	assert.True(t, bt.Observe(2, 0.8))
	assert.False(t, bt.Observe(3, 0.8), "a plateau is not an improvement")
	assert.False(t, bt.Observe(4, 0.85))
	assert.Equal(t, 2, bt.BestEpoch())
	assert.InDelta(t, 0.8, bt.BestLoss(), 1e-12)
}

func TestEarlyStoppingCountsConsecutiveMisses(t *testing.T) {
	es := &EarlyStopping{Patience: 2}

	assert.False(t, es.Observe(true))
	assert.False(t, es.Observe(false))
	assert.Equal(t, 1, es.Wait())
	assert.True(t, es.Observe(false), "patience exhausted")
}

func TestEarlyStoppingResetsOnImprovement(t *testing.T) {
	es := &EarlyStopping{Patience: 2}

	assert.False(t, es.Observe(false))
	assert.False(t, es.Observe(true))
	assert.Equal(t, 0, es.Wait())
	assert.False(t, es.Observe(false))
	assert.True(t, es.Observe(false))
}

func TestEarlyStoppingDisabled(t *testing.T) {
	es := &EarlyStopping{Patience: 0}
	for i := 0; i < 50; i++ {
		assert.False(t, es.Observe(false))
	}
}
