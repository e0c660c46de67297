package dataloader

import "math/rand"

// shuffledOrder permutes indices through a bounded buffer: the buffer is
// filled, a random occupant is emitted and replaced by the next incoming
// index, and the remainder is drained in random order. Items further
// apart than the buffer size keep their relative order, which
// decorrelates batch composition without holding the whole dataset's
// order in play at once.
func shuffledOrder(n, bufSize int, rng *rand.Rand) []int {
	if bufSize <= 0 {
		bufSize = 1
	}
	if bufSize > n {
		bufSize = n
	}

	buf := make([]int, 0, bufSize)
	out := make([]int, 0, n)

	for i := 0; i < n; i++ {
		if len(buf) < bufSize {
			buf = append(buf, i)
			continue
		}
		j := rng.Intn(len(buf))
		out = append(out, buf[j])
		buf[j] = i
	}
	for len(buf) > 0 {
		j := rng.Intn(len(buf))
		out = append(out, buf[j])
		buf[j] = buf[len(buf)-1]
		buf = buf[:len(buf)-1]
	}
	return out
}
