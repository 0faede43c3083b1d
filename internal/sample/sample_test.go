package sample

import (
	"image"
	"image/color"
	"testing"
)

func TestUniform(t *testing.T) {
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	img := Uniform(7, 3, c)
	if img.Bounds() != image.Rect(0, 0, 7, 3) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 7; x++ {
			if got := img.NRGBAAt(x, y); got != c {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, c)
			}
		}
	}
}

func TestTexturedDeterministic(t *testing.T) {
	p := DefaultParams(64, 48)
	a, err := Textured(p)
	if err != nil {
		t.Fatalf("Textured: %v", err)
	}
	b, err := Textured(p)
	if err != nil {
		t.Fatalf("Textured: %v", err)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("byte %d differs between runs with equal params", i)
		}
	}
}

func TestTexturedStaysNearBase(t *testing.T) {
	p := DefaultParams(64, 64)
	p.Amplitude = 10
	img, err := Textured(p)
	if err != nil {
		t.Fatalf("Textured: %v", err)
	}

	varied := false
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := img.NRGBAAt(x, y)
			if c.A != 255 {
				t.Fatalf("alpha at (%d,%d) = %d", x, y, c.A)
			}
			// |noise| <= ~1 per octave sum, plus a quarter amplitude tint
			if d := int(c.G) - 128; d < -30 || d > 30 {
				t.Fatalf("green at (%d,%d) = %d, too far from base", x, y, c.G)
			}
			if c.G != 128 {
				varied = true
			}
		}
	}
	if !varied {
		t.Error("expected some variation around the base color")
	}
}

func TestTexturedRejectsBadParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero width", Params{Width: 0, Height: 10, Scale: 4}},
		{"negative height", Params{Width: 10, Height: -1, Scale: 4}},
		{"zero scale", Params{Width: 10, Height: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Textured(tt.p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCircleMask(t *testing.T) {
	m := CircleMask(100, 100, 50, 50, 20)
	if m.NRGBAAt(50, 50).A != 255 {
		t.Error("center should be masked")
	}
	if m.NRGBAAt(70, 50).A != 255 {
		t.Error("point on the radius should be masked")
	}
	if m.NRGBAAt(71, 50).A != 0 {
		t.Error("point past the radius should be clear")
	}
	if m.NRGBAAt(0, 0).A != 0 {
		t.Error("corner should be clear")
	}
}

func TestRectMaskClips(t *testing.T) {
	m := RectMask(10, 10, image.Rect(8, 8, 20, 20))
	n := 0
	for i := 3; i < len(m.Pix); i += 4 {
		if m.Pix[i] == 255 {
			n++
		}
	}
	if n != 4 {
		t.Errorf("masked pixels = %d, want 4", n)
	}
}
