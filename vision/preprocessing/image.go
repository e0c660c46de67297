// Package preprocessing decodes and resizes image files into the CHW
// float32 buffers consumed by the model. Pixel values stay in [0, 255];
// normalization is the model's rescaling stage.
package preprocessing

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/nfnt/resize"
)

// ImageProcessor decodes JPEG/PNG files and resizes them to a fixed
// target size with buffer reuse across calls.
type ImageProcessor struct {
	mu            sync.Mutex
	processBuffer []float32
	height        int
	width         int
}

// NewImageProcessor creates a processor for the given target size
func NewImageProcessor(height, width int) *ImageProcessor {
	return &ImageProcessor{height: height, width: width}
}

// Height returns the target height
func (p *ImageProcessor) Height() int { return p.height }

// Width returns the target width
func (p *ImageProcessor) Width() int { return p.width }

// PixelsPerImage returns the element count of one decoded image
func (p *ImageProcessor) PixelsPerImage() int { return 3 * p.height * p.width }

// Load decodes the image at path, resizes it to the target size, and
// returns the pixels as a fresh CHW float32 buffer with values in
// [0, 255].
func (p *ImageProcessor) Load(path string) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := resize.Resize(uint(p.width), uint(p.height), img, resize.Bilinear)

	p.mu.Lock()
	defer p.mu.Unlock()

	required := p.PixelsPerImage()
	if len(p.processBuffer) < required {
		p.processBuffer = make([]float32, required)
	}
	data := p.processBuffer[:required]

	plane := p.height * p.width
	bounds := resized.Bounds()
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*p.width + x
			// RGBA returns 16-bit channels; scale down to 8-bit range
			data[idx] = float32(r >> 8)
			data[plane+idx] = float32(g >> 8)
			data[2*plane+idx] = float32(b >> 8)
		}
	}

	// Return a copy since the scratch buffer is reused
	out := make([]float32, required)
	copy(out, data)
	return out, nil
}
