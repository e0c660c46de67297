package preprocessing

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeJPEG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestLoadPNGResizesToTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.png")
	writePNG(t, path, 10, 20, color.RGBA{R: 255, A: 255})

	p := NewImageProcessor(8, 8)
	data, err := p.Load(path)
	require.NoError(t, err)
	require.Len(t, data, 3*8*8)

	plane := 8 * 8
	for i := 0; i < plane; i++ {
		assert.InDelta(t, 255, data[i], 1)       // R
		assert.InDelta(t, 0, data[plane+i], 1)   // G
		assert.InDelta(t, 0, data[2*plane+i], 1) // B
	}
}

func TestLoadJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gray.jpg")
	writeJPEG(t, path, 16, 16, color.RGBA{R: 128, G: 128, B: 128, A: 255})

	p := NewImageProcessor(4, 4)
	data, err := p.Load(path)
	require.NoError(t, err)
	require.Len(t, data, 3*4*4)

	// JPEG is lossy; allow slack around the encoded gray level
	for _, v := range data {
		assert.InDelta(t, 128, v, 8)
	}
}

func TestLoadCorruptFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	p := NewImageProcessor(4, 4)
	_, err := p.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	p := NewImageProcessor(4, 4)
	_, err := p.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestLoadReturnsIndependentBuffers(t *testing.T) {
	dir := t.TempDir()
	red := filepath.Join(dir, "red.png")
	blue := filepath.Join(dir, "blue.png")
	writePNG(t, red, 8, 8, color.RGBA{R: 255, A: 255})
	writePNG(t, blue, 8, 8, color.RGBA{B: 255, A: 255})

	p := NewImageProcessor(8, 8)
	first, err := p.Load(red)
	require.NoError(t, err)
	_, err = p.Load(blue)
	require.NoError(t, err)

	// The scratch buffer is reused, but returned slices must not alias it
	assert.InDelta(t, 255, first[0], 1)
}
