package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-CSCI4830/SureSight/training"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.BeginRun(ctx, "/data/damage", 4)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	for epoch := 1; epoch <= 3; epoch++ {
		err := store.AppendEpoch(ctx, id, training.EpochStats{
			Epoch:         epoch,
			TrainLoss:     1.0 / float64(epoch),
			TrainAccuracy: 0.5,
			ValLoss:       0.9 / float64(epoch),
			ValAccuracy:   0.6,
			Duration:      1500 * time.Millisecond,
		})
		require.NoError(t, err)
	}

	require.NoError(t, store.FinishRun(ctx, id, training.StopEarly, 3, 0.3))

	run, err := store.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/data/damage", run.DatasetRoot)
	assert.Equal(t, 4, run.NumClasses)
	assert.Equal(t, string(training.StopEarly), run.StopReason)
	assert.Equal(t, 3, run.BestEpoch)
	assert.InDelta(t, 0.3, run.BestValLoss, 1e-12)
	assert.False(t, run.StartedAt.IsZero())
	assert.False(t, run.FinishedAt.IsZero())

	epochs, err := store.Epochs(ctx, id)
	require.NoError(t, err)
	require.Len(t, epochs, 3)
	assert.Equal(t, 1, epochs[0].Epoch)
	assert.InDelta(t, 0.9, epochs[0].ValLoss, 1e-12)
	assert.Equal(t, 1500*time.Millisecond, epochs[0].Duration)
}

func TestUnfinishedRunHasZeroFinishTime(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.BeginRun(ctx, "/data", 2)
	require.NoError(t, err)

	run, err := store.Run(ctx, id)
	require.NoError(t, err)
	assert.True(t, run.FinishedAt.IsZero())
	assert.Empty(t, run.StopReason)
}

func TestFinishUnknownRunFails(t *testing.T) {
	store := openStore(t)
	err := store.FinishRun(context.Background(), "nope", training.StopMaxEpochs, 1, 0.5)
	assert.Error(t, err)
}

func TestRunsAreListed(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, err := store.BeginRun(ctx, "/data/a", 2)
	require.NoError(t, err)
	b, err := store.BeginRun(ctx, "/data/b", 3)
	require.NoError(t, err)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ids := []string{runs[0].ID, runs[1].ID}
	assert.Contains(t, ids, a)
	assert.Contains(t, ids, b)
}

func TestRunIDsAreUnique(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		id, err := store.BeginRun(ctx, "/data", 2)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestRecorderAppendsToItsRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.BeginRun(ctx, "/data", 2)
	require.NoError(t, err)

	rec := store.Recorder(id)
	require.NoError(t, rec.RecordEpoch(training.EpochStats{Epoch: 1, ValLoss: 0.7}))

	epochs, err := store.Epochs(ctx, id)
	require.NoError(t, err)
	require.Len(t, epochs, 1)
	assert.InDelta(t, 0.7, epochs[0].ValLoss, 1e-12)
}

func TestStoreReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	id, err := store.BeginRun(context.Background(), "/data", 2)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	run, err := reopened.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
}
