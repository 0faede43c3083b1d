package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
)

// ParseCompression maps a compression name (default, speed, best, none) to a PNG level.
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none", "no":
		return png.NoCompression, nil
	default:
		return png.DefaultCompression, fmt.Errorf("unknown png compression %q (want default, speed, best, none)", name)
	}
}

// EncodePNG writes img as PNG with the named compression level.
func EncodePNG(w io.Writer, img image.Image, compression string) error {
	level, err := ParseCompression(compression)
	if err != nil {
		return err
	}
	enc := &png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// PNGBytes encodes img as PNG into memory.
func PNGBytes(img image.Image, compression string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 * 1024)
	if err := EncodePNG(&buf, img, compression); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL wraps already-encoded PNG bytes into a data URL.
func DataURL(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

// EncodeDataURL encodes img as a PNG data URL.
func EncodeDataURL(img image.Image, compression string) (string, error) {
	data, err := PNGBytes(img, compression)
	if err != nil {
		return "", err
	}
	return DataURL(data), nil
}
