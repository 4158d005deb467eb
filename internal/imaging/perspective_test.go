package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patterned(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: uint8((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestCorrect_OwnCornersIsNoop(t *testing.T) {
	src := patterned(40, 30)

	out := Correct(src, RectCorners(src.Bounds()))

	require.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, src.Pix, ToNRGBA(out).Pix)
}

func TestCorrect_InvalidCornersKeepOriginal(t *testing.T) {
	src := patterned(40, 30)

	tests := []struct {
		name    string
		corners []Point
	}{
		{name: "three corners", corners: []Point{{0, 0}, {40, 0}, {40, 30}}},
		{name: "one corner", corners: []Point{{5, 5}}},
		{name: "five corners", corners: []Point{{0, 0}, {40, 0}, {40, 30}, {0, 30}, {20, 15}}},
		{name: "collinear corners", corners: []Point{{0, 0}, {10, 10}, {20, 20}, {0, 30}}},
		{name: "repeated corner", corners: []Point{{0, 0}, {0, 0}, {40, 30}, {0, 30}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Correct(src, tt.corners)
			assert.Same(t, src, out)
		})
	}
}

func TestCorrect_DefaultCornersKeepDimensions(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 50, 20))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	out := Correct(src, nil)

	require.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 200}, ToNRGBA(out).NRGBAAt(25, 10))
}

func TestCorrect_MapsQuadOntoBounds(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 {
				src.SetNRGBA(x, y, red)
			} else {
				src.SetNRGBA(x, y, blue)
			}
		}
	}

	// the right half stretched over the whole image
	out := ToNRGBA(Correct(src, []Point{{20, 0}, {40, 0}, {40, 20}, {20, 20}}))

	for _, x := range []int{4, 10, 20, 30, 39} {
		assert.Equal(t, blue, out.NRGBAAt(x, 10), "x=%d", x)
	}
}

func TestCorrect_KeystoneIsProjective(t *testing.T) {
	src := patterned(60, 40)
	corners := []Point{{10, 5}, {50, 0}, {60, 40}, {0, 35}}

	out := Correct(src, corners)

	require.Equal(t, src.Bounds(), out.Bounds())
	assert.NotEqual(t, src.Pix, ToNRGBA(out).Pix)
}
