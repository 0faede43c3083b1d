package inpaint

import (
	"image"
	"math"
)

// RingPadding is how far the bounding box is grown to sample healthy texture.
const RingPadding = 15

// ReferenceColor is the mean RGB of the unmasked surroundings of a hole.
type ReferenceColor struct {
	R, G, B float64
}

// distance returns the L1 distance between c and an 8-bit RGB triple.
func (c ReferenceColor) distance(r, g, b uint8) float64 {
	return math.Abs(float64(r)-c.R) + math.Abs(float64(g)-c.G) + math.Abs(float64(b)-c.B)
}

// EstimateReference averages every pixel of the padded box whose weight is
// below ActiveThreshold. It fails with ErrNoReferenceSample when none qualify.
func EstimateReference(orig *image.NRGBA, alpha AlphaMap, box BoundingBox) (ReferenceColor, error) {
	ring := box.Expand(RingPadding, alpha.Width, alpha.Height)

	var sumR, sumG, sumB float64
	count := 0
	for y := ring.MinY; y <= ring.MaxY; y++ {
		for x := ring.MinX; x <= ring.MaxX; x++ {
			if alpha.At(x, y) >= ActiveThreshold {
				continue
			}
			i := orig.PixOffset(x, y)
			sumR += float64(orig.Pix[i])
			sumG += float64(orig.Pix[i+1])
			sumB += float64(orig.Pix[i+2])
			count++
		}
	}

	if count == 0 {
		return ReferenceColor{}, ErrNoReferenceSample
	}

	n := float64(count)
	return ReferenceColor{R: sumR / n, G: sumG / n, B: sumB / n}, nil
}
