package mask

import (
	"image"
	"image/color"
	"testing"
)

func TestExtractAlphaPreservesAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 200})

	m := ExtractAlpha(img)
	if got := m.GrayAt(0, 0).Y; got != 0 {
		t.Fatalf("expected alpha 0 at (0,0), got %d", got)
	}
	if got := m.GrayAt(1, 0).Y; got != 200 {
		t.Fatalf("expected alpha 200 at (1,0), got %d", got)
	}
}

func TestExtractAlphaNormalizesOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 7, 8, 9))
	img.SetNRGBA(5, 7, color.NRGBA{A: 255})

	m := ExtractAlpha(img)
	if m.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("expected origin-anchored bounds, got %v", m.Bounds())
	}
	if got := m.GrayAt(0, 0).Y; got != 255 {
		t.Fatalf("expected 255 at (0,0), got %d", got)
	}
}

func TestExtractLuminance(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	m := ExtractLuminance(img)
	if got := m.GrayAt(0, 0).Y; got != 255 {
		t.Errorf("white pixel should be fully covered, got %d", got)
	}
	if got := m.GrayAt(1, 0).Y; got != 0 {
		t.Errorf("black pixel should be uncovered, got %d", got)
	}
	if got := m.GrayAt(2, 0).Y; got != 0 {
		t.Errorf("transparent pixel should be uncovered, got %d", got)
	}
}

func TestFeatherSoftensEdge(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			m.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	blurred := Feather(m, 1.0)
	if blurred.Bounds() != m.Bounds() {
		t.Fatalf("blurred bounds %v != mask bounds %v", blurred.Bounds(), m.Bounds())
	}
	if got := blurred.GrayAt(0, 5).Y; got > 50 {
		t.Errorf("far left pixel should stay dark (<50), got %d", got)
	}
	if got := blurred.GrayAt(9, 5).Y; got < 200 {
		t.Errorf("far right pixel should stay bright (>200), got %d", got)
	}
	edge := blurred.GrayAt(4, 5).Y
	if edge == 0 || edge == 255 {
		t.Errorf("edge pixel should be feathered, got %d", edge)
	}
}

func TestFeatherZeroSigmaIsIdentity(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 2, 2))
	if Feather(m, 0) != m {
		t.Fatal("expected the same mask back for sigma 0")
	}
}

func TestInvertAndThreshold(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 3, 1))
	m.SetGray(0, 0, color.Gray{Y: 0})
	m.SetGray(1, 0, color.Gray{Y: 127})
	m.SetGray(2, 0, color.Gray{Y: 200})

	inv := Invert(m)
	if got := inv.GrayAt(0, 0).Y; got != 255 {
		t.Fatalf("expected 255 at (0,0), got %d", got)
	}
	if got := inv.GrayAt(2, 0).Y; got != 55 {
		t.Fatalf("expected 55 at (2,0), got %d", got)
	}

	th := Threshold(m, 128)
	want := []uint8{0, 0, 255}
	for x, w := range want {
		if got := th.GrayAt(x, 0).Y; got != w {
			t.Errorf("threshold at x=%d: got %d, want %d", x, got, w)
		}
	}

	if got := Coverage(m, 0); got != 2 {
		t.Errorf("expected coverage 2, got %d", got)
	}
}

func TestAlphaImageRoundTrip(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 4, 3))
	m.SetGray(1, 1, color.Gray{Y: 200})
	m.SetGray(3, 2, color.Gray{Y: 255})

	img := AlphaImage(m)
	if got := img.NRGBAAt(1, 1); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 200}) {
		t.Errorf("pixel (1,1) = %v", got)
	}
	if got := img.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("pixel (0,0) alpha = %d, want 0", got.A)
	}

	back := ExtractAlpha(img)
	for i := range m.Pix {
		if back.Pix[i] != m.Pix[i] {
			t.Fatalf("coverage byte %d = %d, want %d", i, back.Pix[i], m.Pix[i])
		}
	}
}
