package inpaint

import (
	"image"
	"math"
)

// Donor search parameters.
const (
	// SearchStep is the radius increment between rings.
	SearchStep = 8
	// MaxSearchRadius bounds the spiral search.
	MaxSearchRadius = 100
	// SearchAngles is the number of samples per ring, spaced π/4 apart.
	SearchAngles = 8
	// EarlyExitDistance stops the search once a completed ring produced a
	// donor closer than this to the reference color.
	EarlyExitDistance = 15.0
	// CorrectionFactor is how far a donor is pulled toward the reference.
	CorrectionFactor = 0.85
)

// Donor is an unmasked pixel chosen as texture source.
type Donor struct {
	X, Y     int
	Distance float64
}

// searchRings holds the integer offsets visited per radius, ascending radius
// then ascending angle.
var searchRings = buildSearchRings()

func buildSearchRings() [][]image.Point {
	var rings [][]image.Point
	for r := SearchStep; r <= MaxSearchRadius; r += SearchStep {
		ring := make([]image.Point, 0, SearchAngles)
		for i := 0; i < SearchAngles; i++ {
			theta := float64(i) * (2 * math.Pi / SearchAngles)
			ring = append(ring, image.Point{
				X: int(math.Round(float64(r) * math.Cos(theta))),
				Y: int(math.Round(float64(r) * math.Sin(theta))),
			})
		}
		rings = append(rings, ring)
	}
	return rings
}

// FindDonor searches the spiral neighbourhood of (x, y) for the unmasked pixel
// whose original color is closest to ref. Ties keep the first candidate seen.
// The search ends after the first ring whose running best is under
// EarlyExitDistance, so the result is not necessarily the global minimum.
func FindDonor(orig *image.NRGBA, alpha AlphaMap, x, y int, ref ReferenceColor) (Donor, bool) {
	best := Donor{Distance: math.Inf(1)}
	found := false

	for _, ring := range searchRings {
		for _, off := range ring {
			sx, sy := x+off.X, y+off.Y
			if sx < 0 || sy < 0 || sx >= alpha.Width || sy >= alpha.Height {
				continue
			}
			if alpha.At(sx, sy) >= MaskThreshold {
				continue
			}

			i := orig.PixOffset(sx, sy)
			d := ref.distance(orig.Pix[i], orig.Pix[i+1], orig.Pix[i+2])
			if d < best.Distance {
				best = Donor{X: sx, Y: sy, Distance: d}
				found = true
			}
		}
		if found && best.Distance < EarlyExitDistance {
			break
		}
	}

	return best, found
}

// synthesizeDonors fills every masked pixel of the box with a color-corrected
// donor. Pixels without a donor keep their original value in the working buffer.
func synthesizeDonors(orig *image.NRGBA, work *workBuffer, alpha AlphaMap, box BoundingBox, ref ReferenceColor) (hits, misses int) {
	for y := box.MinY; y <= box.MaxY; y++ {
		for x := box.MinX; x <= box.MaxX; x++ {
			if !alpha.Masked(x, y) {
				continue
			}

			donor, ok := FindDonor(orig, alpha, x, y, ref)
			if !ok {
				misses++
				continue
			}

			i := orig.PixOffset(donor.X, donor.Y)
			dr := float64(orig.Pix[i])
			dg := float64(orig.Pix[i+1])
			db := float64(orig.Pix[i+2])

			work.set(x, y,
				dr+(ref.R-dr)*CorrectionFactor,
				dg+(ref.G-dg)*CorrectionFactor,
				db+(ref.B-db)*CorrectionFactor,
			)
			hits++
		}
	}
	return hits, misses
}
