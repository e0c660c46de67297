package dataset

import (
	"encoding/binary"
	"hash/fnv"
)

// drawUnit maps (seed, key) to a deterministic value in [0, 1). The hash
// depends only on the seed and the class-relative path, never on
// enumeration order, so partition membership is stable across runs and
// unaffected by files added to other classes.
func drawUnit(seed int64, key string) float64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(key))
	// 53 high bits give a uniform double in [0, 1)
	return float64(h.Sum64()>>11) / float64(1<<53)
}
