package mask

import (
	"image"
	"testing"
)

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.Pix[img.PixOffset(x, y)+3]
}

func TestBrushCircle(t *testing.T) {
	b := NewBrush(40, 40)
	b.Circle(20, 20, 10)
	img := b.Image()

	if got := alphaAt(img, 20, 20); got < 250 {
		t.Errorf("centre should be fully covered, got %d", got)
	}
	if got := alphaAt(img, 2, 2); got != 0 {
		t.Errorf("corner should be uncovered, got %d", got)
	}
	if got := alphaAt(img, 20, 35); got != 0 {
		t.Errorf("pixel outside radius should be uncovered, got %d", got)
	}
}

func TestBrushRectInteriorAndExterior(t *testing.T) {
	b := NewBrush(20, 20)
	b.Rect(5, 5, 15, 10)
	cov := b.Coverage()

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			inside := x >= 5 && x < 15 && y >= 5 && y < 10
			got := cov.GrayAt(x, y).Y
			if inside && got < 250 {
				t.Fatalf("(%d,%d) inside rect: got %d, want ~255", x, y, got)
			}
			if !inside && got != 0 {
				t.Fatalf("(%d,%d) outside rect: got %d, want 0", x, y, got)
			}
		}
	}
}

func TestBrushStrokeCoversPath(t *testing.T) {
	b := NewBrush(60, 20)
	b.Stroke([]Point{{5, 10}, {55, 10}}, 6)
	img := b.Image()

	for x := 5; x < 55; x += 5 {
		if got := alphaAt(img, x, 10); got < 250 {
			t.Fatalf("stroke should cover (%d,10), got %d", x, got)
		}
	}
	if got := alphaAt(img, 30, 2); got != 0 {
		t.Errorf("pixel above stroke should be uncovered, got %d", got)
	}
}

func TestBrushDegenerateShapesPaintNothing(t *testing.T) {
	b := NewBrush(10, 10)
	b.Polygon([]Point{{1, 1}, {5, 5}})
	b.Circle(5, 5, 0)
	b.Stroke(nil, 3)

	if got := Coverage(b.Coverage(), 0); got != 0 {
		t.Fatalf("expected empty canvas, got %d covered pixels", got)
	}
}
