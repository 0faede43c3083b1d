package inpaint

import (
	"image"
	"image/color"
	"math"
)

// clampU8 clamps an int value to the uint8 range [0, 255].
func clampU8(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

// clampChannel clamps a float channel value to [0, 255].
func clampChannel(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// quantize rounds a float channel value to the nearest representable byte.
func quantize(v float64) uint8 {
	return clampU8(int(math.Round(v)))
}

// toNRGBA copies src into a fresh NRGBA buffer anchored at the origin.
// The copy is always owned by the caller, even when src already is an *image.NRGBA.
func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < bounds.Dy(); y++ {
			srcOff := n.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			dstOff := dst.PixOffset(0, y)
			copy(dst.Pix[dstOff:dstOff+4*bounds.Dx()], n.Pix[srcOff:srcOff+4*bounds.Dx()])
		}
		return dst
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, c)
		}
	}
	return dst
}
