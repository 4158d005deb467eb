package imaging

import "image"

// Scan enhancement constants, tuned for printed text.
const (
	Contrast   = 1.2
	Brightness = 10.0
	Threshold  = 140
)

// Enhance applies v*Contrast + Brightness to the colour channels of every pixel.
// Alpha is left untouched.
func Enhance(src image.Image) *image.NRGBA {
	out := ToNRGBA(src)
	pix := out.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = clamp8(float64(pix[i])*Contrast + Brightness)
		pix[i+1] = clamp8(float64(pix[i+1])*Contrast + Brightness)
		pix[i+2] = clamp8(float64(pix[i+2])*Contrast + Brightness)
	}
	return out
}

// Binarize turns every pixel white when its luminance (0.299R + 0.587G + 0.114B)
// is at or above Threshold and black otherwise. Alpha is left untouched.
func Binarize(src image.Image) *image.NRGBA {
	out := ToNRGBA(src)
	pix := out.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		// luminance scaled by 1000 keeps the comparison exact
		lum := 299*int(pix[i]) + 587*int(pix[i+1]) + 114*int(pix[i+2])
		var v uint8
		if lum >= Threshold*1000 {
			v = 255
		}
		pix[i], pix[i+1], pix[i+2] = v, v, v
	}
	return out
}

// EnhanceForScan is the default document treatment: enhancement, then binarization.
func EnhanceForScan(src image.Image) *image.NRGBA {
	return Binarize(Enhance(src))
}
