// Package augment implements label-preserving randomized transforms for
// training images: independent horizontal/vertical flips and rotation by
// an angle drawn uniformly from a configurable fraction of a full turn.
package augment

import (
	"math"
	"math/rand"
	"sync"
)

// DefaultRotationFactor is the rotation range as a fraction of a full
// turn, matching the classifier's training recipe (±0.2 turns = ±72°).
const DefaultRotationFactor = 0.2

// Augmenter applies stochastic geometric transforms to CHW image buffers.
// Safe for use from a single producer goroutine; the mutex guards the RNG
// when loaders share one instance.
type Augmenter struct {
	mu             sync.Mutex
	rng            *rand.Rand
	rotationFactor float64
}

// New creates an Augmenter seeded for reproducible transform sequences.
// rotationFactor is the maximum rotation as a fraction of a full turn.
func New(seed int64, rotationFactor float64) *Augmenter {
	if rotationFactor < 0 {
		rotationFactor = 0
	}
	return &Augmenter{
		rng:            rand.New(rand.NewSource(seed)),
		rotationFactor: rotationFactor,
	}
}

// RotationFactor returns the configured rotation range
func (a *Augmenter) RotationFactor() float64 {
	return a.rotationFactor
}

// Apply transforms a single image in place. The buffer holds a CHW image
// of the given dimensions. Each flip axis is applied independently with
// probability 0.5, then the image is rotated by a uniform random angle.
func (a *Augmenter) Apply(img []float32, channels, height, width int) {
	a.mu.Lock()
	flipH := a.rng.Float64() < 0.5
	flipV := a.rng.Float64() < 0.5
	angle := (a.rng.Float64()*2 - 1) * a.rotationFactor * 2 * math.Pi
	a.mu.Unlock()

	if flipH {
		flipHorizontal(img, channels, height, width)
	}
	if flipV {
		flipVertical(img, channels, height, width)
	}
	if angle != 0 {
		rotate(img, channels, height, width, angle)
	}
}

func flipHorizontal(img []float32, channels, height, width int) {
	for c := 0; c < channels; c++ {
		plane := img[c*height*width : (c+1)*height*width]
		for y := 0; y < height; y++ {
			row := plane[y*width : (y+1)*width]
			for i, j := 0, width-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
	}
}

func flipVertical(img []float32, channels, height, width int) {
	for c := 0; c < channels; c++ {
		plane := img[c*height*width : (c+1)*height*width]
		for top, bot := 0, height-1; top < bot; top, bot = top+1, bot-1 {
			a := plane[top*width : (top+1)*width]
			b := plane[bot*width : (bot+1)*width]
			for x := 0; x < width; x++ {
				a[x], b[x] = b[x], a[x]
			}
		}
	}
}

// rotate performs a nearest-neighbor rotation about the image center.
// Samples falling outside the source are filled by reflection, so the
// rotated image has no hard black corners.
func rotate(img []float32, channels, height, width int, angle float64) {
	sin, cos := math.Sincos(angle)
	cy := float64(height-1) / 2
	cx := float64(width-1) / 2

	rotated := make([]float32, height*width)
	for c := 0; c < channels; c++ {
		plane := img[c*height*width : (c+1)*height*width]
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				// Inverse mapping: destination -> source
				dy := float64(y) - cy
				dx := float64(x) - cx
				srcY := int(math.Round(cy + dy*cos - dx*sin))
				srcX := int(math.Round(cx + dy*sin + dx*cos))
				srcY = reflectIndex(srcY, height)
				srcX = reflectIndex(srcX, width)
				rotated[y*width+x] = plane[srcY*width+srcX]
			}
		}
		copy(plane, rotated)
	}
}

// reflectIndex mirrors an out-of-range index back into [0, n)
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2*n - 2
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}
