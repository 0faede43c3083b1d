package inpaint

import "image"

// workBuffer is the mutable RGB reconstruction canvas. Channels stay in float
// so that many low-weight diffusion steps accumulate instead of rounding away.
type workBuffer struct {
	pix    []float64
	width  int
	height int
}

// newWorkBuffer seeds the working canvas from the original pixels.
func newWorkBuffer(orig *image.NRGBA) *workBuffer {
	bounds := orig.Bounds()
	w := &workBuffer{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		pix:    make([]float64, 3*bounds.Dx()*bounds.Dy()),
	}
	for y := 0; y < w.height; y++ {
		for x := 0; x < w.width; x++ {
			src := orig.PixOffset(x, y)
			dst := w.offset(x, y)
			w.pix[dst] = float64(orig.Pix[src])
			w.pix[dst+1] = float64(orig.Pix[src+1])
			w.pix[dst+2] = float64(orig.Pix[src+2])
		}
	}
	return w
}

func (w *workBuffer) offset(x, y int) int {
	return 3 * (y*w.width + x)
}

func (w *workBuffer) at(x, y int) (r, g, b float64) {
	i := w.offset(x, y)
	return w.pix[i], w.pix[i+1], w.pix[i+2]
}

func (w *workBuffer) set(x, y int, r, g, b float64) {
	i := w.offset(x, y)
	w.pix[i] = clampChannel(r)
	w.pix[i+1] = clampChannel(g)
	w.pix[i+2] = clampChannel(b)
}
