package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeClassDir creates a class subdirectory with n placeholder images
func writeClassDir(t *testing.T, root, class string, n int) {
	t.Helper()
	dir := filepath.Join(root, class)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("img_%03d.png", i))
		require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o644))
	}
}

func itemSet(items []Item) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item.Path] = true
	}
	return set
}

func TestPartitionDeterminism(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, "cracked", 50)
	writeClassDir(t, root, "intact", 50)

	first, err := Partition(root, 0.2, 42)
	require.NoError(t, err)
	second, err := Partition(root, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, first.Train, second.Train)
	assert.Equal(t, first.Val, second.Val)
}

func TestPartitionDisjointAndComplete(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, "cracked", 40)
	writeClassDir(t, root, "intact", 60)

	split, err := Partition(root, 0.3, 7)
	require.NoError(t, err)

	train := itemSet(split.Train)
	val := itemSet(split.Val)

	for path := range val {
		assert.False(t, train[path], "item %s in both partitions", path)
	}
	assert.Equal(t, 100, len(train)+len(val))
}

func TestPartitionScenarioTwoClassesSeed42(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, "cracked", 100)
	writeClassDir(t, root, "intact", 100)

	split, err := Partition(root, 0.2, 42)
	require.NoError(t, err)

	// Expected validation size is 40 of 200; allow statistical slack
	assert.InDelta(t, 40, len(split.Val), 20)

	repeat, err := Partition(root, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, itemSet(split.Val), itemSet(repeat.Val))
}

func TestPartitionDiffersAcrossSeeds(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, "cracked", 100)
	writeClassDir(t, root, "intact", 100)

	a, err := Partition(root, 0.2, 1)
	require.NoError(t, err)
	b, err := Partition(root, 0.2, 2)
	require.NoError(t, err)

	assert.NotEqual(t, itemSet(a.Val), itemSet(b.Val))
}

func TestCatalogIsSortedAndStable(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, "water", 10)
	writeClassDir(t, root, "cracked", 10)
	writeClassDir(t, root, "intact", 10)

	split, err := Partition(root, 0.2, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"cracked", "intact", "water"}, split.Catalog.Names())

	// Labels in both partitions resolve through the same catalog
	for _, items := range [][]Item{split.Train, split.Val} {
		for _, item := range items {
			name, ok := split.Catalog.Name(int(item.Label))
			require.True(t, ok)
			assert.Equal(t, filepath.Base(filepath.Dir(item.Path)), name)
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := Partition(filepath.Join(t.TempDir(), "nope"), 0.2, 1)
		var de *Error
		assert.ErrorAs(t, err, &de)
	})

	t.Run("no class subdirectories", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "stray.png"), []byte("x"), 0o644))
		_, err := Partition(root, 0.2, 1)
		var de *Error
		assert.ErrorAs(t, err, &de)
	})

	t.Run("empty class", func(t *testing.T) {
		root := t.TempDir()
		writeClassDir(t, root, "cracked", 10)
		require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
		_, err := Partition(root, 0.2, 1)
		var de *Error
		assert.ErrorAs(t, err, &de)
	})

	t.Run("non-image files ignored", func(t *testing.T) {
		root := t.TempDir()
		writeClassDir(t, root, "cracked", 20)
		writeClassDir(t, root, "intact", 20)
		require.NoError(t, os.WriteFile(filepath.Join(root, "cracked", "notes.txt"), []byte("x"), 0o644))

		split, err := Partition(root, 0.2, 1)
		require.NoError(t, err)
		assert.Equal(t, 40, len(split.Train)+len(split.Val))
	})

	t.Run("invalid split fraction", func(t *testing.T) {
		root := t.TempDir()
		writeClassDir(t, root, "cracked", 10)
		_, err := Partition(root, 0, 1)
		assert.Error(t, err)
		_, err = Partition(root, 1, 1)
		assert.Error(t, err)
	})
}

func TestDistribution(t *testing.T) {
	root := t.TempDir()
	writeClassDir(t, root, "cracked", 30)
	writeClassDir(t, root, "intact", 70)

	split, err := Partition(root, 0.2, 9)
	require.NoError(t, err)

	dist := split.Distribution()
	assert.Equal(t, 30, dist["cracked"])
	assert.Equal(t, 70, dist["intact"])
}

func TestDrawUnitRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := drawUnit(42, fmt.Sprintf("class/img_%d.png", i))
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
