package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/sirupsen/logrus"
)

// DefaultInset is the margin, as a fraction of each dimension, of the corners
// assumed when none are detected. It stands in for real edge detection.
const DefaultInset = 0.10

// Point is a continuous image coordinate; the centre of pixel (x, y) is (x+0.5, y+0.5).
type Point struct {
	X, Y float64
}

// RectCorners returns the corners of r as top-left, top-right, bottom-right, bottom-left.
func RectCorners(r image.Rectangle) []Point {
	return []Point{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
	}
}

// DefaultCorners approximates the page as a centred rectangle inset by DefaultInset.
func DefaultCorners(r image.Rectangle) []Point {
	dx := float64(r.Dx()) * DefaultInset
	dy := float64(r.Dy()) * DefaultInset
	return []Point{
		{float64(r.Min.X) + dx, float64(r.Min.Y) + dy},
		{float64(r.Max.X) - dx, float64(r.Min.Y) + dy},
		{float64(r.Max.X) - dx, float64(r.Max.Y) - dy},
		{float64(r.Min.X) + dx, float64(r.Max.Y) - dy},
	}
}

// Correct maps the quadrilateral given by corners (top-left, top-right,
// bottom-right, bottom-left) onto the bounds of src with a projective transform.
// Without corners DefaultCorners is used. A wrong corner count or a degenerate
// quadrilateral returns src unchanged.
func Correct(src image.Image, corners []Point) image.Image {
	b := src.Bounds()
	if b.Empty() {
		return src
	}

	if len(corners) == 0 {
		corners = DefaultCorners(b)
	}
	if len(corners) != 4 {
		logrus.Warnf("perspective: expected 4 corners, got %d; keeping original image", len(corners))
		return src
	}

	scale := math.Max(float64(b.Dx()), float64(b.Dy()))
	if collinear(corners, scale) {
		logrus.Warnf("perspective: degenerate corners %v; keeping original image", corners)
		return src
	}

	h, ok := solveHomography(RectCorners(b), corners, scale)
	if !ok {
		logrus.Warnf("perspective: singular transform for corners %v; keeping original image", corners)
		return src
	}

	in := ToNRGBA(src)
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sx, sy, ok := h.apply(float64(x)+0.5, float64(y)+0.5)
			if !ok {
				continue
			}
			out.SetNRGBA(x, y, sample(in, sx-0.5, sy-0.5))
		}
	}

	return out
}

// homography maps destination coordinates to source coordinates. Coordinates
// are divided by scale before solving to keep the system well conditioned.
type homography struct {
	m     [8]float64
	scale float64
}

func (h homography) apply(x, y float64) (float64, float64, bool) {
	x /= h.scale
	y /= h.scale
	w := h.m[6]*x + h.m[7]*y + 1
	if math.Abs(w) < 1e-12 {
		return 0, 0, false
	}
	u := (h.m[0]*x + h.m[1]*y + h.m[2]) / w
	v := (h.m[3]*x + h.m[4]*y + h.m[5]) / w
	return u * h.scale, v * h.scale, true
}

func solveHomography(from, to []Point, scale float64) (homography, bool) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := from[i].X/scale, from[i].Y/scale
		u, v := to[i].X/scale, to[i].Y/scale
		a[2*i] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		a[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return homography{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		for row := 0; row < 8; row++ {
			if row == col {
				continue
			}
			f := a[row][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}

	h := homography{scale: scale}
	for i := 0; i < 8; i++ {
		h.m[i] = a[i][8] / a[i][i]
	}
	return h, true
}

func collinear(p []Point, scale float64) bool {
	eps := 1e-6 * scale * scale
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := j + 1; k < 4; k++ {
				cross := (p[j].X-p[i].X)*(p[k].Y-p[i].Y) - (p[j].Y-p[i].Y)*(p[k].X-p[i].X)
				if math.Abs(cross) < eps {
					return true
				}
			}
		}
	}
	return false
}

// sample interpolates bilinearly at pixel-index coordinates, clamping to the edges.
func sample(img *image.NRGBA, fx, fy float64) color.NRGBA {
	x0, tx := split(fx)
	y0, ty := split(fy)

	c00 := clampedAt(img, x0, y0)
	c10 := clampedAt(img, x0+1, y0)
	c01 := clampedAt(img, x0, y0+1)
	c11 := clampedAt(img, x0+1, y0+1)

	lerp := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-tx) + float64(b)*tx
		bottom := float64(c)*(1-tx) + float64(d)*tx
		return clamp8(top*(1-ty) + bottom*ty)
	}

	return color.NRGBA{
		R: lerp(c00.R, c10.R, c01.R, c11.R),
		G: lerp(c00.G, c10.G, c01.G, c11.G),
		B: lerp(c00.B, c10.B, c01.B, c11.B),
		A: lerp(c00.A, c10.A, c01.A, c11.A),
	}
}

// split returns the integer part and fraction of f, snapping fractions within
// rounding noise of a whole pixel.
func split(f float64) (int, float64) {
	const snap = 1e-6
	i := math.Floor(f)
	t := f - i
	if t < snap {
		t = 0
	} else if t > 1-snap {
		i++
		t = 0
	}
	return int(i), t
}

func clampedAt(img *image.NRGBA, x, y int) color.NRGBA {
	b := img.Bounds()
	if x < b.Min.X {
		x = b.Min.X
	}
	if x >= b.Max.X {
		x = b.Max.X - 1
	}
	if y < b.Min.Y {
		y = b.Min.Y
	}
	if y >= b.Max.Y {
		y = b.Max.Y - 1
	}
	return img.NRGBAAt(x, y)
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
