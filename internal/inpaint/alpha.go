package inpaint

import (
	"fmt"
	"image"
)

// Coverage thresholds on the AlphaMap.
const (
	// MaskThreshold marks a pixel for reconstruction (strictly above).
	// Donor candidates must sit strictly below it.
	MaskThreshold = 0.05
	// ActiveThreshold gates diffusion and grain (strictly above).
	// Reference samples must sit strictly below it.
	ActiveThreshold = 0.1
)

// AlphaMap holds the per-pixel reconstruction weight in [0,1], row-major.
type AlphaMap struct {
	Values []float64
	Width  int
	Height int
}

// NewAlphaMap derives an AlphaMap from a coverage mask (0 = keep, 255 = rebuild).
func NewAlphaMap(coverage *image.Gray) AlphaMap {
	bounds := coverage.Bounds()
	m := AlphaMap{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Values: make([]float64, bounds.Dx()*bounds.Dy()),
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Values[y*m.Width+x] = float64(coverage.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / 255.0
		}
	}
	return m
}

// At returns the weight at (x, y). Callers must stay in bounds.
func (m AlphaMap) At(x, y int) float64 {
	return m.Values[y*m.Width+x]
}

// Masked reports whether (x, y) must be reconstructed.
func (m AlphaMap) Masked(x, y int) bool {
	return m.At(x, y) > MaskThreshold
}

// Active reports whether (x, y) takes part in diffusion and grain.
func (m AlphaMap) Active(x, y int) bool {
	return m.At(x, y) > ActiveThreshold
}

// BoundingBox is an inclusive pixel rectangle.
type BoundingBox struct {
	MinX, MaxX int
	MinY, MaxY int
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%d..%d]x[%d..%d]", b.MinX, b.MaxX, b.MinY, b.MaxY)
}

// Width returns the number of columns covered by the box.
func (b BoundingBox) Width() int { return b.MaxX - b.MinX + 1 }

// Height returns the number of rows covered by the box.
func (b BoundingBox) Height() int { return b.MaxY - b.MinY + 1 }

// Expand grows the box by pad pixels on every side, clipped to a w×h image.
func (b BoundingBox) Expand(pad, w, h int) BoundingBox {
	return BoundingBox{
		MinX: max(b.MinX-pad, 0),
		MaxX: min(b.MaxX+pad, w-1),
		MinY: max(b.MinY-pad, 0),
		MaxY: min(b.MaxY+pad, h-1),
	}
}

// AnalyzeMask builds the AlphaMap and the tightest box around masked pixels.
// ok is false when no pixel exceeds MaskThreshold.
func AnalyzeMask(coverage *image.Gray) (m AlphaMap, box BoundingBox, ok bool) {
	m = NewAlphaMap(coverage)

	box = BoundingBox{MinX: m.Width, MaxX: -1, MinY: m.Height, MaxY: -1}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Masked(x, y) {
				continue
			}
			ok = true
			if x < box.MinX {
				box.MinX = x
			}
			if x > box.MaxX {
				box.MaxX = x
			}
			if y < box.MinY {
				box.MinY = y
			}
			if y > box.MaxY {
				box.MaxY = y
			}
		}
	}

	if !ok {
		return m, BoundingBox{}, false
	}
	return m, box, true
}
