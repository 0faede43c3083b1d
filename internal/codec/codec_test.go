package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 80), G: uint8(y * 120), B: 7, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func assertSamePixels(t *testing.T, want *image.NRGBA, got image.Image) {
	t.Helper()
	if got.Bounds() != want.Bounds() {
		t.Fatalf("bounds %v, want %v", got.Bounds(), want.Bounds())
	}
	for y := 0; y < want.Bounds().Dy(); y++ {
		for x := 0; x < want.Bounds().Dx(); x++ {
			c := color.NRGBAModel.Convert(got.At(x, y)).(color.NRGBA)
			if c != want.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) = %+v, want %+v", x, y, c, want.NRGBAAt(x, y))
			}
		}
	}
}

func TestDecodeRawPNG(t *testing.T) {
	src := testImage()
	img, format, err := Decode(pngBytes(t, src), DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	assertSamePixels(t, src, img)
}

func TestDecodeDataURL(t *testing.T) {
	src := testImage()
	url := DataURL(pngBytes(t, src))
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected data URL prefix: %.30s", url)
	}

	img, _, err := Decode([]byte(url), DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertSamePixels(t, src, img)

	img, _, err = DecodeString("  "+url+"\n", DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	assertSamePixels(t, src, img)
}

func TestDecodeStringBareBase64(t *testing.T) {
	src := testImage()
	encoded := base64.StdEncoding.EncodeToString(pngBytes(t, src))

	img, _, err := DecodeString(encoded, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	assertSamePixels(t, src, img)

	img, _, err = DecodeString(strings.TrimRight(encoded, "="), DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeString without padding: %v", err)
	}
	assertSamePixels(t, src, img)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "empty", data: "", want: ErrDecode},
		{name: "garbage", data: "not an image", want: ErrDecode},
		{name: "data URL without comma", data: "data:image/png;base64", want: ErrDecode},
		{name: "data URL not base64", data: "data:image/png,abc", want: ErrDecode},
		{name: "bad base64", data: "data:image/png;base64,@@@", want: ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data), DecodeOptions{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeMaxPixels(t *testing.T) {
	_, _, err := Decode(pngBytes(t, testImage()), DecodeOptions{MaxPixels: 5})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    png.CompressionLevel
		wantErr bool
	}{
		{in: "", want: png.DefaultCompression},
		{in: "default", want: png.DefaultCompression},
		{in: "speed", want: png.BestSpeed},
		{in: "BEST", want: png.BestCompression},
		{in: "none", want: png.NoCompression},
		{in: "ultra", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCompression(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseCompression(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestEncodeDataURLRoundTrip(t *testing.T) {
	src := testImage()
	url, err := EncodeDataURL(src, "best")
	if err != nil {
		t.Fatalf("EncodeDataURL: %v", err)
	}
	img, _, err := DecodeString(url, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	assertSamePixels(t, src, img)
}

func TestWriteAndReadFile(t *testing.T) {
	src := testImage()
	path := filepath.Join(t.TempDir(), "nested", "out.png")

	if err := WritePNG(path, src, "speed"); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := ReadFile(path, DecodeOptions{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	assertSamePixels(t, src, img)

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.png"), DecodeOptions{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPayload(t *testing.T) {
	raw := pngBytes(t, testImage())
	encoded := base64.StdEncoding.EncodeToString(raw)

	for _, in := range []string{encoded, DataURL(raw), " " + encoded + " "} {
		got, err := Payload(in)
		if err != nil {
			t.Fatalf("Payload(%.20q): %v", in, err)
		}
		if !bytes.Equal(got, raw) {
			t.Fatalf("Payload(%.20q) returned different bytes", in)
		}
	}

	if _, err := Payload("%%%"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
