package inpaint

// Diffusion parameters.
const (
	// DiffusionWeight is the per-iteration pull toward the 4-neighbour mean.
	DiffusionWeight = 0.08
	// MinIterations and MaxIterations bound the effective iteration count.
	MinIterations = 10
	MaxIterations = 400
	// DefaultPasses is the caller-facing quality knob used when none is given.
	DefaultPasses = 1200
)

// DiffusionIterations maps the caller-facing passes value to the number of
// diffusion sweeps actually run: passes/4 clamped to [MinIterations, MaxIterations].
func DiffusionIterations(passes int) int {
	return min(max(passes/4, MinIterations), MaxIterations)
}

// EffectivePasses returns the passes value a call actually runs with:
// zero or negative selects DefaultPasses.
func EffectivePasses(passes int) int {
	if passes <= 0 {
		return DefaultPasses
	}
	return passes
}

var neighbours4 = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// diffuse relaxes active pixels toward their 4-neighbour mean, in place and in
// row-major order. Neighbours outside the image are skipped.
func diffuse(work *workBuffer, alpha AlphaMap, box BoundingBox, iterations int) {
	for it := 0; it < iterations; it++ {
		for y := box.MinY; y <= box.MaxY; y++ {
			for x := box.MinX; x <= box.MaxX; x++ {
				if !alpha.Active(x, y) {
					continue
				}

				var sumR, sumG, sumB float64
				n := 0
				for _, d := range neighbours4 {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= work.width || ny >= work.height {
						continue
					}
					r, g, b := work.at(nx, ny)
					sumR += r
					sumG += g
					sumB += b
					n++
				}
				if n == 0 {
					continue
				}

				inv := 1.0 / float64(n)
				r, g, b := work.at(x, y)
				work.set(x, y,
					r+(sumR*inv-r)*DiffusionWeight,
					g+(sumG*inv-g)*DiffusionWeight,
					b+(sumB*inv-b)*DiffusionWeight,
				)
			}
		}
	}
}
