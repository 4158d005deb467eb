package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnhance(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 50, B: 200, A: 128})
	src.SetNRGBA(1, 0, color.NRGBA{R: 250, G: 0, B: 220, A: 255})

	out := Enhance(src)

	assert.Equal(t, color.NRGBA{R: 130, G: 70, B: 250, A: 128}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 10, B: 255, A: 255}, out.NRGBAAt(1, 0))
	// the source is not modified
	assert.Equal(t, color.NRGBA{R: 100, G: 50, B: 200, A: 128}, src.NRGBAAt(0, 0))
}

func TestBinarize_Threshold(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 140, G: 140, B: 140, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 139, G: 139, B: 139, A: 90})
	src.SetNRGBA(2, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})

	out := Binarize(src)

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{A: 90}, out.NRGBAAt(1, 0))
	// 0.299 * 255 is below the threshold
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(2, 0))
}

func TestBinarize_Idempotent(t *testing.T) {
	once := Binarize(patterned(32, 24))
	twice := Binarize(once)

	assert.Equal(t, once.Pix, twice.Pix)
}

func TestEnhance_Deterministic(t *testing.T) {
	src := patterned(16, 16)

	assert.Equal(t, EnhanceForScan(src).Pix, EnhanceForScan(src).Pix)
}
