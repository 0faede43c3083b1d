// Package sample builds synthetic images and masks for demos, tests, and benchmarks.
package sample

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"
)

// Params describes a textured fixture.
type Params struct {
	Width  int
	Height int
	Base   color.NRGBA
	// Amplitude is the peak deviation from Base per channel (0..255).
	Amplitude float64
	// Scale is the noise feature size in pixels (smaller = more detail).
	Scale float64
	Seed  int64
}

// DefaultParams returns a mid-gray canvas with soft mottling.
func DefaultParams(w, h int) Params {
	return Params{
		Width:     w,
		Height:    h,
		Base:      color.NRGBA{R: 128, G: 128, B: 128, A: 255},
		Amplitude: 24,
		Scale:     32,
		Seed:      1,
	}
}

// Uniform returns a w×h image filled with c.
func Uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// Textured returns an opaque image of Base perturbed by fractal Perlin noise.
// The same Params always produce the same pixels.
func Textured(p Params) (*image.NRGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("size must be positive, got %dx%d", p.Width, p.Height)
	}
	if p.Scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %g", p.Scale)
	}

	// alpha: persistence, beta: lacunarity, n: octaves
	noise := perlin.NewPerlin(2.0, 2.0, 3, p.Seed)
	// Offset channel lookups so R, G, and B don't move in lockstep.
	tint := perlin.NewPerlin(2.0, 2.0, 2, p.Seed+1)

	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		ny := float64(y) / p.Scale
		for x := 0; x < p.Width; x++ {
			nx := float64(x) / p.Scale

			v := noise.Noise2D(nx, ny) * p.Amplitude
			t := tint.Noise2D(nx*0.5, ny*0.5) * p.Amplitude * 0.25

			img.SetNRGBA(x, y, color.NRGBA{
				R: shift(p.Base.R, v+t),
				G: shift(p.Base.G, v),
				B: shift(p.Base.B, v-t),
				A: 255,
			})
		}
	}
	return img, nil
}

// CircleMask returns a mask whose alpha is 255 inside the circle and 0 outside.
func CircleMask(w, h, cx, cy, r int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	r2 := r * r
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r2 {
				m.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return m
}

// RectMask returns a mask covering r.
func RectMask(w, h int, r image.Rectangle) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return m
}

func shift(base uint8, delta float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(float64(base)+delta))))
}
