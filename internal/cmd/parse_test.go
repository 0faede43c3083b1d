package cmd

import (
	"image/color"
	"testing"

	"github.com/MeKo-Tech/retouch/internal/mask"
)

func TestParseFloats(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		n       int
		want    []float64
		wantErr bool
	}{
		{name: "circle", input: "120,80,24", n: 3, want: []float64{120, 80, 24}},
		{name: "with spaces", input: "1.5, 2 ,3", n: 3, want: []float64{1.5, 2, 3}},
		{name: "negative", input: "-4,7", n: 2, want: []float64{-4, 7}},
		{name: "too few", input: "1,2", n: 3, wantErr: true},
		{name: "too many", input: "1,2,3,4", n: 3, wantErr: true},
		{name: "not a number", input: "a,2,3", n: 3, wantErr: true},
		{name: "empty", input: "", n: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFloats(tt.input, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFloats() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("parseFloats()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParsePoints(t *testing.T) {
	pts, err := parsePoints("10,10; 20,15;30,40;")
	if err != nil {
		t.Fatalf("parsePoints: %v", err)
	}
	want := []mask.Point{{X: 10, Y: 10}, {X: 20, Y: 15}, {X: 30, Y: 40}}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}

	for _, bad := range []string{"", ";", "1,2;3", "x,y"} {
		if _, err := parsePoints(bad); err == nil {
			t.Errorf("parsePoints(%q) expected error", bad)
		}
	}
}

func TestParseStroke(t *testing.T) {
	width, pts, err := parseStroke("12:10,10;200,40")
	if err != nil {
		t.Fatalf("parseStroke: %v", err)
	}
	if width != 12 || len(pts) != 2 {
		t.Errorf("got width %v with %d points", width, len(pts))
	}

	for _, bad := range []string{"10,10;20,20", "0:1,1;2,2", "w:1,1", "5:"} {
		if _, _, err := parseStroke(bad); err == nil {
			t.Errorf("parseStroke(%q) expected error", bad)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("200,100,50")
	if err != nil {
		t.Fatalf("parseColor: %v", err)
	}
	if c != (color.NRGBA{R: 200, G: 100, B: 50, A: 255}) {
		t.Errorf("parseColor = %v", c)
	}

	for _, bad := range []string{"256,0,0", "-1,0,0", "1,2"} {
		if _, err := parseColor(bad); err == nil {
			t.Errorf("parseColor(%q) expected error", bad)
		}
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":     "photo.retouched.png",
		"dir/photo.png": "dir/photo.retouched.png",
		"dir.v2/photo":  "dir.v2/photo.retouched.png",
		"a.b/c.d.webp":  "a.b/c.d.retouched.png",
		"noext":         "noext.retouched.png",
	}
	for in, want := range tests {
		if got := defaultOutputPath(in); got != want {
			t.Errorf("defaultOutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}
