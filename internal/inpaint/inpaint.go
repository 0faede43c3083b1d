// Package inpaint fills masked regions of an image by local texture synthesis.
//
// A call runs five phases over buffers it owns exclusively:
//
//  1. mask analysis: AlphaMap and bounding box of the masked pixels
//  2. reference estimation: mean color of the healthy ring around the box
//  3. donor synthesis: spiral search for the best unmasked donor per pixel,
//     color-corrected toward the reference
//  4. diffusion: low-rate 4-neighbour smoothing restricted to the mask
//  5. grain and compositing: luminance-dependent noise, then an alpha blend
//     back over the original
//
// Original is only read. Working is mutated by phases 3 to 5. Output is written
// once by compositing. Nothing survives between calls.
package inpaint

import (
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"time"

	"github.com/MeKo-Tech/retouch/internal/mask"
)

// Options tunes a single inpaint call.
type Options struct {
	// Rand drives grain synthesis. Nil uses a time-seeded source, so output
	// varies between runs unless a seeded generator is supplied.
	Rand *rand.Rand
	// Logger receives per-phase debug records. Nil uses slog.Default().
	Logger *slog.Logger
	// Passes is the caller-facing quality knob (see DiffusionIterations).
	// Zero or negative selects DefaultPasses.
	Passes int
	// FeatherSigma softens the mask with a Gaussian blur before analysis.
	// Zero disables feathering.
	FeatherSigma float32
}

// Stats describes what a call did.
type Stats struct {
	Box         BoundingBox
	Reference   ReferenceColor
	Elapsed     time.Duration
	Masked      int
	DonorHits   int
	DonorMisses int
	Iterations  int
	// Empty is set when the mask selected nothing and the source was returned as is.
	Empty bool
}

// Inpaint reconstructs the pixels selected by maskImg's alpha channel.
func Inpaint(src, maskImg image.Image, opts Options) (*image.NRGBA, error) {
	out, _, err := Run(src, mask.ExtractAlpha(maskImg), opts)
	return out, err
}

// Run reconstructs src where coverage is non-zero and reports statistics.
// coverage is a per-pixel weight: 0 keeps the source, 255 fully rebuilds it.
func Run(src image.Image, coverage *image.Gray, opts Options) (*image.NRGBA, Stats, error) {
	start := time.Now()
	logger := opts.log()
	stats := Stats{}

	if src == nil || coverage == nil {
		return nil, stats, fmt.Errorf("inpaint: source and mask are required")
	}
	size := src.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, stats, ErrEmptyImage
	}
	if coverage.Bounds().Size() != size {
		return nil, stats, fmt.Errorf("%w: source %dx%d, mask %dx%d",
			ErrDimensionMismatch, size.X, size.Y, coverage.Bounds().Dx(), coverage.Bounds().Dy())
	}

	if opts.FeatherSigma > 0 {
		coverage = mask.Feather(coverage, opts.FeatherSigma)
	}

	original := toNRGBA(src)

	alpha, box, ok := AnalyzeMask(coverage)
	if !ok {
		stats.Empty = true
		stats.Elapsed = time.Since(start)
		logger.Debug("Mask is empty; returning source unchanged")
		return original, stats, nil
	}
	stats.Box = box
	for _, v := range alpha.Values {
		if v > MaskThreshold {
			stats.Masked++
		}
	}
	logger.Debug("Mask analyzed", "box", box.String(), "masked", stats.Masked)

	ref, err := EstimateReference(original, alpha, box)
	if err != nil {
		return nil, stats, err
	}
	stats.Reference = ref
	logger.Debug("Reference color estimated", "r", ref.R, "g", ref.G, "b", ref.B)

	working := newWorkBuffer(original)

	stats.DonorHits, stats.DonorMisses = synthesizeDonors(original, working, alpha, box, ref)
	logger.Debug("Donors synthesized", "hits", stats.DonorHits, "misses", stats.DonorMisses)

	passes := EffectivePasses(opts.Passes)
	stats.Iterations = DiffusionIterations(passes)
	diffuse(working, alpha, box, stats.Iterations)
	logger.Debug("Diffusion complete", "passes", passes, "iterations", stats.Iterations)

	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	addGrain(working, alpha, box, rnd)

	output := composite(original, working, alpha)

	stats.Elapsed = time.Since(start)
	logger.Debug("Inpaint complete", "elapsed", stats.Elapsed)
	return output, stats, nil
}

func (o Options) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
