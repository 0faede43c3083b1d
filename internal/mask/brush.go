package mask

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// Point is a position in pixel space. Pixel (x, y) covers [x, x+1) × [y, y+1).
type Point struct {
	X, Y float64
}

// Brush paints antialiased shapes into a mask canvas.
// Coverage accumulates in the alpha channel, so overlapping shapes never exceed 255.
type Brush struct {
	canvas *image.NRGBA
	paint  *image.Uniform
}

// NewBrush creates an empty (fully transparent) w×h canvas.
func NewBrush(w, h int) *Brush {
	return &Brush{
		canvas: image.NewNRGBA(image.Rect(0, 0, w, h)),
		paint:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
	}
}

// Image returns the painted canvas. The alpha channel holds the coverage.
func (b *Brush) Image() *image.NRGBA {
	return b.canvas
}

// Coverage returns the canvas alpha as a coverage mask.
func (b *Brush) Coverage() *image.Gray {
	return ExtractAlpha(b.canvas)
}

func (b *Brush) rasterizer() *vector.Rasterizer {
	bounds := b.canvas.Bounds()
	return vector.NewRasterizer(bounds.Dx(), bounds.Dy())
}

func (b *Brush) fill(ras *vector.Rasterizer) {
	ras.Draw(b.canvas, b.canvas.Bounds(), b.paint, image.Point{})
}

// Polygon fills a closed polygon. Fewer than three points paint nothing.
func (b *Brush) Polygon(pts []Point) {
	if len(pts) < 3 {
		return
	}
	ras := b.rasterizer()
	ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		ras.LineTo(float32(p.X), float32(p.Y))
	}
	ras.ClosePath()
	b.fill(ras)
}

// Rect fills the axis-aligned rectangle spanning two corners.
func (b *Brush) Rect(x0, y0, x1, y1 float64) {
	b.Polygon([]Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}})
}

// Circle fills a disc centred on (cx, cy).
func (b *Brush) Circle(cx, cy, r float64) {
	if r <= 0 {
		return
	}
	ras := b.rasterizer()
	addCircle(ras, cx, cy, r)
	b.fill(ras)
}

func addCircle(ras *vector.Rasterizer, cx, cy, r float64) {
	k := r * kappa
	f := func(v float64) float32 { return float32(v) }

	ras.MoveTo(f(cx+r), f(cy))
	ras.CubeTo(f(cx+r), f(cy+k), f(cx+k), f(cy+r), f(cx), f(cy+r))
	ras.CubeTo(f(cx-k), f(cy+r), f(cx-r), f(cy+k), f(cx-r), f(cy))
	ras.CubeTo(f(cx-r), f(cy-k), f(cx-k), f(cy-r), f(cx), f(cy-r))
	ras.CubeTo(f(cx+k), f(cy-r), f(cx+r), f(cy-k), f(cx+r), f(cy))
	ras.ClosePath()
}

// Stroke paints a polyline with round caps and joins, the way a brush drag
// over the canvas would.
func (b *Brush) Stroke(pts []Point, width float64) {
	if len(pts) == 0 || width <= 0 {
		return
	}
	radius := width / 2

	for _, p := range pts {
		b.Circle(p.X, p.Y, radius)
	}

	for i := 0; i < len(pts)-1; i++ {
		p0, p1 := pts[i], pts[i+1]
		dx := p1.X - p0.X
		dy := p1.Y - p0.Y
		segLen := math.Hypot(dx, dy)
		if segLen == 0 {
			continue
		}
		// Unit normal scaled to the brush radius.
		nx := -dy / segLen * radius
		ny := dx / segLen * radius
		b.Polygon([]Point{
			{p0.X + nx, p0.Y + ny},
			{p1.X + nx, p1.Y + ny},
			{p1.X - nx, p1.Y - ny},
			{p0.X - nx, p0.Y - ny},
		})
	}
}
