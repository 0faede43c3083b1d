package mask

import (
	"image"
	"image/color"

	"github.com/disintegration/gift"
)

// ExtractAlpha converts an image into a coverage mask taken from its alpha channel.
// The result is anchored at the origin regardless of img's bounds.
func ExtractAlpha(img image.Image) *image.Gray {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			// RGBA() returns values in range 0-65535
			dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(a >> 8)})
		}
	}

	return dst
}

// ExtractLuminance converts an opaque white-on-black mask into a coverage mask.
// Coverage is the pixel's luma scaled by its alpha, so transparent pixels never count.
func ExtractLuminance(img image.Image) *image.Gray {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Gray conversion works on premultiplied values, which folds alpha in.
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, g)
		}
	}

	return dst
}

// Feather applies a Gaussian blur to soften mask edges.
// The sigma parameter controls the blur radius (larger = more blur).
func Feather(m *image.Gray, sigma float32) *image.Gray {
	if sigma <= 0 {
		return m
	}
	g := gift.New(gift.GaussianBlur(sigma))

	dst := image.NewGray(g.Bounds(m.Bounds()))
	g.Draw(dst, m)

	return dst
}

// Invert flips keep and rebuild regions.
func Invert(m *image.Gray) *image.Gray {
	dst := image.NewGray(m.Bounds())
	for i, v := range m.Pix {
		dst.Pix[i] = 255 - v
	}
	return dst
}

// Threshold applies a binary threshold to harden mask edges.
// Values below threshold become 0, values at or above become 255.
func Threshold(m *image.Gray, threshold uint8) *image.Gray {
	bounds := m.Bounds()
	dst := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if m.GrayAt(x, y).Y >= threshold {
				dst.SetGray(x, y, color.Gray{Y: 255})
			} else {
				dst.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	return dst
}

// Coverage counts pixels whose value is strictly above min.
func Coverage(m *image.Gray, min uint8) int {
	n := 0
	bounds := m.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if m.GrayAt(x, y).Y > min {
				n++
			}
		}
	}
	return n
}

// AlphaImage turns a coverage mask into white paint whose alpha is the coverage,
// the form editors export when a user paints over the region to remove.
func AlphaImage(m *image.Gray) *image.NRGBA {
	bounds := m.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			a := m.GrayAt(x, y).Y
			if a == 0 {
				continue
			}
			dst.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA{R: 255, G: 255, B: 255, A: a})
		}
	}

	return dst
}
