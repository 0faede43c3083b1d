package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/MeKo-Tech/retouch/internal/inpaint"
	"github.com/MeKo-Tech/retouch/internal/retouch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var inpaintCmd = &cobra.Command{
	Use:   "inpaint",
	Short: "Reconstruct the masked region of a single image",
	Long: `Inpaint reads an image and a mask of the same size and writes the image with
the masked region reconstructed from its surroundings.

By default coverage is read from the mask's alpha channel; use --mask-channel luma
for opaque white-on-black masks.`,
	Example: `  retouch inpaint --image photo.jpg --mask photo.mask.png --output clean.png
  retouch inpaint --image photo.png --mask scribble.png --mask-channel luma --seed 7`,
	RunE: runInpaint,
}

func init() {
	rootCmd.AddCommand(inpaintCmd)

	inpaintCmd.Flags().StringP("image", "i", "", "Source image (png, jpeg, gif, bmp, tiff, webp)")
	inpaintCmd.Flags().StringP("mask", "m", "", "Mask image with the same dimensions")
	inpaintCmd.Flags().StringP("output", "o", "", "Output PNG (default: <image>.retouched.png)")
	addEngineFlags(inpaintCmd, "inpaint")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"inpaint.image", "image"},
		{"inpaint.mask", "mask"},
		{"inpaint.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, inpaintCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// addEngineFlags registers the knobs shared by inpaint, batch, and serve under prefix.
func addEngineFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().Int("passes", 1200, "Quality knob; diffusion runs passes/4 iterations, clamped to [10,400]")
	cmd.Flags().Int64("seed", -1, "Grain seed for reproducible output (negative = time-seeded)")
	cmd.Flags().String("mask-channel", "alpha", "Mask channel carrying coverage (alpha, luma)")
	cmd.Flags().Float32("feather", 0, "Gaussian feather sigma applied to the mask (0 = off)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{prefix + ".passes", "passes"},
		{prefix + ".seed", "seed"},
		{prefix + ".mask_channel", "mask-channel"},
		{prefix + ".feather", "feather"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// engineRequest builds a retouch.Request from the flags bound under prefix.
func engineRequest(prefix string) (retouch.Request, error) {
	channel, err := retouch.ParseMaskChannel(viper.GetString(prefix + ".mask_channel"))
	if err != nil {
		return retouch.Request{}, err
	}
	if _, err := codec.ParseCompression(viper.GetString("png_compression")); err != nil {
		return retouch.Request{}, err
	}

	req := retouch.Request{
		MaskChannel:  channel,
		Passes:       inpaint.EffectivePasses(viper.GetInt(prefix + ".passes")),
		FeatherSigma: float32(viper.GetFloat64(prefix + ".feather")),
	}
	if seed := viper.GetInt64(prefix + ".seed"); seed >= 0 {
		req.Seed = retouch.Seed(seed)
	}
	return req, nil
}

func newService() *retouch.Service {
	return retouch.New(retouch.Config{
		Logger:      logger,
		Compression: viper.GetString("png_compression"),
		MaxPixels:   viper.GetInt("max_pixels"),
	})
}

func runInpaint(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	imagePath := viper.GetString("inpaint.image")
	maskPath := viper.GetString("inpaint.mask")
	output := viper.GetString("inpaint.output")
	if imagePath == "" || maskPath == "" {
		return fmt.Errorf("--image and --mask are required")
	}
	if output == "" {
		output = defaultOutputPath(imagePath)
	}

	req, err := engineRequest("inpaint")
	if err != nil {
		return err
	}

	source, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	maskData, err := os.ReadFile(maskPath)
	if err != nil {
		return fmt.Errorf("failed to read mask: %w", err)
	}

	logger.Info("Starting inpaint",
		"image", imagePath,
		"mask", maskPath,
		"output", output,
		"passes", req.Passes,
		"mask_channel", req.MaskChannel,
	)

	resp, err := newService().Inpaint(context.Background(), source, maskData, req)
	if err != nil {
		return fmt.Errorf("inpaint %s: %w", imagePath, err)
	}

	if err := codec.WriteFile(output, resp.PNG); err != nil {
		return err
	}

	logger.Info("Image written",
		"path", output,
		"masked", resp.Stats.Masked,
		"donor_misses", resp.Stats.DonorMisses,
		"elapsed", resp.Stats.Elapsed,
	)
	return nil
}

// defaultOutputPath maps photo.jpg to photo.retouched.png.
func defaultOutputPath(imagePath string) string {
	base := imagePath
	if i := strings.LastIndexByte(base, '.'); i > strings.LastIndexAny(base, `/\`) {
		base = base[:i]
	}
	return base + ".retouched.png"
}
