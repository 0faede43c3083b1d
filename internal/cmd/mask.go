package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/MeKo-Tech/retouch/internal/mask"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Rasterize shapes into a mask PNG",
	Long: `Mask paints circles, rectangles, polygons, and brush strokes into a transparent
canvas. Painted pixels are opaque; everything else stays transparent, which is the
alpha coverage the inpaint command reads by default.`,
	Example: `  retouch mask --like photo.jpg --circle 120,80,24 --output photo.mask.png
  retouch mask --width 640 --height 480 --stroke "12:10,10;200,40;220,90" --feather 1.5`,
	RunE: runMask,
}

func init() {
	rootCmd.AddCommand(maskCmd)

	maskCmd.Flags().Int("width", 0, "Canvas width (or use --like)")
	maskCmd.Flags().Int("height", 0, "Canvas height (or use --like)")
	maskCmd.Flags().String("like", "", "Take canvas size from this image")
	maskCmd.Flags().StringArray("circle", nil, "Circle cx,cy,r (repeatable)")
	maskCmd.Flags().StringArray("rect", nil, "Rectangle x0,y0,x1,y1 (repeatable)")
	maskCmd.Flags().StringArray("polygon", nil, "Polygon x,y;x,y;x,y... (repeatable)")
	maskCmd.Flags().StringArray("stroke", nil, "Brush stroke width:x,y;x,y... (repeatable)")
	maskCmd.Flags().Float32("feather", 0, "Gaussian feather sigma (0 = hard edges)")
	maskCmd.Flags().Bool("luma", false, "Write an opaque white-on-black mask instead of alpha coverage")
	maskCmd.Flags().StringP("output", "o", "mask.png", "Output PNG")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"mask.width", "width"},
		{"mask.height", "height"},
		{"mask.like", "like"},
		{"mask.circle", "circle"},
		{"mask.rect", "rect"},
		{"mask.polygon", "polygon"},
		{"mask.stroke", "stroke"},
		{"mask.feather", "feather"},
		{"mask.luma", "luma"},
		{"mask.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, maskCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runMask(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	w := viper.GetInt("mask.width")
	h := viper.GetInt("mask.height")
	if like := viper.GetString("mask.like"); like != "" {
		img, err := codec.ReadFile(like, codec.DecodeOptions{})
		if err != nil {
			return err
		}
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("canvas size required: set --width and --height, or --like")
	}

	brush := mask.NewBrush(w, h)
	shapes := 0

	for _, s := range viper.GetStringSlice("mask.circle") {
		v, err := parseFloats(s, 3)
		if err != nil {
			return fmt.Errorf("--circle %q: %w", s, err)
		}
		brush.Circle(v[0], v[1], v[2])
		shapes++
	}
	for _, s := range viper.GetStringSlice("mask.rect") {
		v, err := parseFloats(s, 4)
		if err != nil {
			return fmt.Errorf("--rect %q: %w", s, err)
		}
		brush.Rect(v[0], v[1], v[2], v[3])
		shapes++
	}
	for _, s := range viper.GetStringSlice("mask.polygon") {
		pts, err := parsePoints(s)
		if err != nil {
			return fmt.Errorf("--polygon %q: %w", s, err)
		}
		if len(pts) < 3 {
			return fmt.Errorf("--polygon %q: need at least 3 points", s)
		}
		brush.Polygon(pts)
		shapes++
	}
	for _, s := range viper.GetStringSlice("mask.stroke") {
		width, pts, err := parseStroke(s)
		if err != nil {
			return fmt.Errorf("--stroke %q: %w", s, err)
		}
		brush.Stroke(pts, width)
		shapes++
	}

	coverage := brush.Coverage()
	if sigma := float32(viper.GetFloat64("mask.feather")); sigma > 0 {
		coverage = mask.Feather(coverage, sigma)
	}

	output := viper.GetString("mask.output")
	var err error
	if viper.GetBool("mask.luma") {
		err = codec.WritePNG(output, coverage, viper.GetString("png_compression"))
	} else {
		err = codec.WritePNG(output, mask.AlphaImage(coverage), viper.GetString("png_compression"))
	}
	if err != nil {
		return err
	}

	logger.Info("Mask written",
		"path", output,
		"width", w,
		"height", h,
		"shapes", shapes,
		"covered", mask.Coverage(coverage, 0),
	)
	return nil
}

// parseFloats parses exactly n comma-separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// parsePoints parses "x,y;x,y;...".
func parsePoints(s string) ([]mask.Point, error) {
	var pts []mask.Point
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parseFloats(part, 2)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", len(pts), err)
		}
		pts = append(pts, mask.Point{X: v[0], Y: v[1]})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no points")
	}
	return pts, nil
}

// parseStroke parses "width:x,y;x,y;...".
func parseStroke(s string) (float64, []mask.Point, error) {
	widthStr, rest, ok := strings.Cut(s, ":")
	if !ok {
		return 0, nil, fmt.Errorf("expected width:points")
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(widthStr), 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid width: %w", err)
	}
	if width <= 0 {
		return 0, nil, fmt.Errorf("width must be positive")
	}
	pts, err := parsePoints(rest)
	if err != nil {
		return 0, nil, err
	}
	return width, pts, nil
}
