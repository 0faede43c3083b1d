// Package retouch wires decoding, mask preparation, inpainting, and encoding
// into a single call used by the CLI, the HTTP server, and the wasm bridge.
package retouch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/MeKo-Tech/retouch/internal/inpaint"
	"github.com/MeKo-Tech/retouch/internal/mask"
)

// MaskChannel selects which channel of the mask image carries coverage.
type MaskChannel string

const (
	// MaskAlpha reads coverage from the alpha channel (painted-over transparency).
	MaskAlpha MaskChannel = "alpha"
	// MaskLuma reads coverage from brightness (opaque white-on-black masks).
	MaskLuma MaskChannel = "luma"
)

// ParseMaskChannel validates a mask channel name. Empty selects MaskAlpha.
func ParseMaskChannel(s string) (MaskChannel, error) {
	switch MaskChannel(strings.ToLower(strings.TrimSpace(s))) {
	case "", MaskAlpha:
		return MaskAlpha, nil
	case MaskLuma, "luminance":
		return MaskLuma, nil
	default:
		return "", fmt.Errorf("unknown mask channel %q (want alpha or luma)", s)
	}
}

// Coverage extracts the coverage mask from img according to the channel.
func (c MaskChannel) Coverage(img image.Image) *image.Gray {
	if c == MaskLuma {
		return mask.ExtractLuminance(img)
	}
	return mask.ExtractAlpha(img)
}

// Request carries the per-call knobs.
type Request struct {
	// Seed makes grain reproducible. Nil draws fresh randomness per call.
	Seed         *int64
	MaskChannel  MaskChannel
	Compression  string
	Passes       int
	FeatherSigma float32
}

// Response is the outcome of a successful call.
type Response struct {
	Image *image.NRGBA
	PNG   []byte
	Stats inpaint.Stats
}

// Config configures a Service.
type Config struct {
	Logger *slog.Logger
	// Compression is the default PNG compression (default, speed, best, none).
	Compression string
	// MaxPixels bounds decoded image size (0 = unlimited).
	MaxPixels int
}

// Service runs inpaint jobs. It holds no per-call state and is safe for concurrent use.
type Service struct {
	logger *slog.Logger
	cfg    Config
}

// New creates a Service.
func New(cfg Config) *Service {
	return &Service{cfg: cfg, logger: cfg.Logger}
}

// Inpaint decodes source and mask concurrently, reconstructs the masked region,
// and returns the PNG-encoded result. The context is only checked before the
// compute phase starts; reconstruction itself runs to completion.
func (s *Service) Inpaint(ctx context.Context, source, maskData []byte, req Request) (*Response, error) {
	decodeOpts := codec.DecodeOptions{MaxPixels: s.cfg.MaxPixels}

	var (
		wg              sync.WaitGroup
		srcImg, maskImg image.Image
		srcErr, maskErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		srcImg, _, srcErr = codec.Decode(source, decodeOpts)
	}()
	go func() {
		defer wg.Done()
		// Masks are authored in canvas space; never rotate them.
		maskOpts := decodeOpts
		maskOpts.KeepOrientation = true
		maskImg, _, maskErr = codec.Decode(maskData, maskOpts)
	}()
	wg.Wait()

	if srcErr != nil {
		return nil, fmt.Errorf("source image: %w", srcErr)
	}
	if maskErr != nil {
		return nil, fmt.Errorf("mask image: %w", maskErr)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, stats, err := s.InpaintImages(srcImg, maskImg, req)
	if err != nil {
		return nil, err
	}

	compression := req.Compression
	if compression == "" {
		compression = s.cfg.Compression
	}
	data, err := codec.PNGBytes(out, compression)
	if err != nil {
		return nil, err
	}

	return &Response{Image: out, PNG: data, Stats: stats}, nil
}

// InpaintImages runs the engine on already decoded images.
func (s *Service) InpaintImages(src, maskImg image.Image, req Request) (*image.NRGBA, inpaint.Stats, error) {
	channel := req.MaskChannel
	if channel == "" {
		channel = MaskAlpha
	}

	opts := inpaint.Options{
		Passes:       req.Passes,
		FeatherSigma: req.FeatherSigma,
		Logger:       s.log(),
	}
	if req.Seed != nil {
		opts.Rand = rand.New(rand.NewSource(*req.Seed))
	}

	out, stats, err := inpaint.Run(src, channel.Coverage(maskImg), opts)
	if err != nil {
		return nil, stats, err
	}

	s.log().Info("Inpaint finished",
		"width", out.Bounds().Dx(),
		"height", out.Bounds().Dy(),
		"masked", stats.Masked,
		"donor_misses", stats.DonorMisses,
		"iterations", stats.Iterations,
		"elapsed", stats.Elapsed,
		"empty", stats.Empty,
	)
	return out, stats, nil
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Seed is a convenience for building Request.Seed from a literal.
func Seed(v int64) *int64 {
	return &v
}
