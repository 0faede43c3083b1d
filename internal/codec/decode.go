// Package codec converts between encoded rasters (files, base64 data URLs) and pixel buffers.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrDecode is returned when input bytes cannot be turned into a pixel buffer.
var ErrDecode = errors.New("failed to decode image")

// ErrTooLarge is returned when an image exceeds the configured pixel budget.
var ErrTooLarge = errors.New("image exceeds pixel limit")

// DecodeOptions controls decoding.
type DecodeOptions struct {
	// MaxPixels rejects images with more than this many pixels (0 = unlimited).
	MaxPixels int
	// KeepOrientation disables EXIF auto-rotation of JPEG input.
	KeepOrientation bool
}

// Decode decodes raw encoded bytes or a base64 data URL into an image.
// It returns the registered format name ("png", "jpeg", ...).
func Decode(data []byte, opts DecodeOptions) (image.Image, string, error) {
	raw, err := unwrapDataURL(data)
	if err != nil {
		return nil, "", err
	}
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if opts.MaxPixels > 0 && cfg.Width*cfg.Height > opts.MaxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d > %d pixels", ErrTooLarge, cfg.Width, cfg.Height, opts.MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(!opts.KeepOrientation))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, format, nil
}

// DecodeString decodes a data URL or a bare base64 payload.
func DecodeString(s string, opts DecodeOptions) (image.Image, string, error) {
	raw, err := Payload(s)
	if err != nil {
		return nil, "", err
	}
	return Decode(raw, opts)
}

// Payload returns the encoded image bytes carried by a data URL or a bare
// base64 string.
func Payload(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		return unwrapDataURL([]byte(s))
	}
	return decodeBase64(s)
}

// unwrapDataURL returns the payload of a data URL, or data unchanged when it is not one.
func unwrapDataURL(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("data:")) {
		return data, nil
	}

	header, payload, ok := strings.Cut(string(trimmed), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URL", ErrDecode)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: data URL is not base64 encoded", ErrDecode)
	}
	return decodeBase64(payload)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	// Some canvas exports drop the padding.
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: invalid base64: %w", ErrDecode, err)
}
