package inpaint

import (
	"image"
	"math/rand"
)

// Grain parameters.
const (
	// DarkLuma is the luma below which the stronger grain applies.
	DarkLuma = 50
	// DarkGrainAmplitude and GrainAmplitude are peak-to-peak noise widths.
	DarkGrainAmplitude = 4.0
	GrainAmplitude     = 2.0
)

// addGrain adds uniform noise in [-amp/2, +amp/2] to every active pixel.
// Pixels darker than DarkLuma get the stronger amplitude.
func addGrain(work *workBuffer, alpha AlphaMap, box BoundingBox, rnd *rand.Rand) {
	for y := box.MinY; y <= box.MaxY; y++ {
		for x := box.MinX; x <= box.MaxX; x++ {
			if !alpha.Active(x, y) {
				continue
			}

			r, g, b := work.at(x, y)
			amp := GrainAmplitude
			if (r+g+b)/3 < DarkLuma {
				amp = DarkGrainAmplitude
			}

			work.set(x, y,
				r+(rnd.Float64()-0.5)*amp,
				g+(rnd.Float64()-0.5)*amp,
				b+(rnd.Float64()-0.5)*amp,
			)
		}
	}
}

// composite blends the working canvas over the original using the AlphaMap as
// weight and returns a new, fully opaque image.
func composite(orig *image.NRGBA, work *workBuffer, alpha AlphaMap) *image.NRGBA {
	out := image.NewNRGBA(orig.Bounds())
	copy(out.Pix, orig.Pix)

	for y := 0; y < alpha.Height; y++ {
		for x := 0; x < alpha.Width; x++ {
			i := out.PixOffset(x, y)
			out.Pix[i+3] = 255

			a := alpha.At(x, y)
			if a <= 0 {
				continue
			}

			r, g, b := work.at(x, y)
			out.Pix[i] = quantize(r*a + float64(orig.Pix[i])*(1-a))
			out.Pix[i+1] = quantize(g*a + float64(orig.Pix[i+1])*(1-a))
			out.Pix[i+2] = quantize(b*a + float64(orig.Pix[i+2])*(1-a))
		}
	}
	return out
}
