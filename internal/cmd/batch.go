package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/retouch/internal/archive"
	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/MeKo-Tech/retouch/internal/inpaint"
	"github.com/MeKo-Tech/retouch/internal/retouch"
	"github.com/MeKo-Tech/retouch/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inpaint every image/mask pair in a directory",
	Long: `Batch scans --input-dir for <name>.<ext> images that have a matching
<name><mask-suffix> mask and reconstructs them in parallel.

Results go to --output-dir, to an SQLite archive (--archive), or both. With
--skip-archived, pairs whose inputs and settings are already archived are skipped.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("input-dir", ".", "Directory containing images and masks")
	batchCmd.Flags().String("output-dir", "./retouched", "Directory for reconstructed PNGs (empty = don't write files)")
	batchCmd.Flags().String("mask-suffix", ".mask.png", "Suffix that turns an image name into its mask file name")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some pairs fail")
	batchCmd.Flags().String("archive", "", "SQLite archive to store results in")
	batchCmd.Flags().Bool("skip-archived", true, "Skip pairs already present in the archive")
	addEngineFlags(batchCmd, "batch")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"batch.input_dir", "input-dir"},
		{"batch.output_dir", "output-dir"},
		{"batch.mask_suffix", "mask-suffix"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.archive", "archive"},
		{"batch.skip_archived", "skip-archived"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, batchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inputDir := viper.GetString("batch.input_dir")
	outputDir := viper.GetString("batch.output_dir")
	maskSuffix := viper.GetString("batch.mask_suffix")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	archivePath := viper.GetString("batch.archive")
	skipArchived := viper.GetBool("batch.skip_archived")

	if outputDir == "" && archivePath == "" {
		return fmt.Errorf("nothing to do: set --output-dir, --archive, or both")
	}

	req, err := engineRequest("batch")
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	tasks, err := discoverPairs(inputDir, maskSuffix, outputDir)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		logger.Warn("No image/mask pairs found", "input_dir", inputDir, "mask_suffix", maskSuffix)
		return nil
	}

	logger.Info("Starting batch inpaint",
		"input_dir", inputDir,
		"pairs", len(tasks),
		"workers", workers,
		"output_dir", outputDir,
		"archive", archivePath,
	)

	proc := &batchProcessor{
		svc:          newService(),
		req:          req,
		writeFiles:   outputDir != "",
		skipArchived: skipArchived,
	}
	if archivePath != "" {
		proc.archive, err = archive.Create(archivePath, archive.Metadata{
			Name:        "retouch",
			Description: "Batch inpaint results from " + inputDir,
			Version:     "1",
			Compression: viper.GetString("png_compression"),
		})
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer proc.archive.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Processor:  proc,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := worker.Failed(results)
	for _, r := range failed {
		logger.Error("Inpaint failed", "name", r.Task.Name, "image", r.Task.ImagePath, "error", r.Err)
	}

	logger.Info(progress.Summary())

	if proc.archive != nil {
		if err := proc.archive.Flush(); err != nil {
			return fmt.Errorf("failed to flush archive: %w", err)
		}
	}

	if len(failed) > 0 {
		if allowFailures {
			logger.Warn("Some pairs failed, but continuing due to --allow-failures flag", "failed_count", len(failed))
			return nil
		}
		return fmt.Errorf("%d of %d pairs failed", len(failed), len(tasks))
	}
	return nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// discoverPairs lists images in dir that have a mask named <stem><maskSuffix>.
// Tasks are sorted by name. outputDir may be empty. When several images share a
// stem (a.jpg, a.png) only the first in directory order is used.
func discoverPairs(dir, maskSuffix, outputDir string) ([]worker.Task, error) {
	if maskSuffix == "" {
		return nil, fmt.Errorf("mask suffix must not be empty")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input dir: %w", err)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[e.Name()] = true
		}
	}

	var tasks []worker.Task
	claimed := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, maskSuffix) {
			continue
		}
		ext := filepath.Ext(name)
		if !imageExtensions[strings.ToLower(ext)] {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		maskName := stem + maskSuffix
		if !present[maskName] {
			continue
		}
		if first, ok := claimed[stem]; ok {
			slog.Warn("Skipping image with duplicate name", "image", name, "kept", first, "mask", maskName)
			continue
		}
		claimed[stem] = name

		task := worker.Task{
			Name:      stem,
			ImagePath: filepath.Join(dir, name),
			MaskPath:  filepath.Join(dir, maskName),
		}
		if outputDir != "" {
			task.OutputPath = filepath.Join(outputDir, stem+".png")
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}

// batchProcessor runs one pair through the service and stores the result.
type batchProcessor struct {
	svc          *retouch.Service
	archive      *archive.Writer
	req          retouch.Request
	writeFiles   bool
	skipArchived bool
}

func (p *batchProcessor) Process(ctx context.Context, task worker.Task) (inpaint.Stats, error) {
	source, err := os.ReadFile(task.ImagePath)
	if err != nil {
		return inpaint.Stats{}, fmt.Errorf("failed to read image: %w", err)
	}
	maskData, err := os.ReadFile(task.MaskPath)
	if err != nil {
		return inpaint.Stats{}, fmt.Errorf("failed to read mask: %w", err)
	}

	passes := inpaint.EffectivePasses(p.req.Passes)
	key := archive.ContentKey(source, maskData, passes, p.req.Seed)
	if p.archive != nil && p.skipArchived {
		done, err := p.archive.HasKey(key)
		if err != nil {
			return inpaint.Stats{}, err
		}
		if done {
			return inpaint.Stats{}, worker.ErrSkipped
		}
	}

	resp, err := p.svc.Inpaint(ctx, source, maskData, p.req)
	if err != nil {
		return inpaint.Stats{}, err
	}

	if p.writeFiles && task.OutputPath != "" {
		if err := codec.WriteFile(task.OutputPath, resp.PNG); err != nil {
			return resp.Stats, err
		}
	}

	if p.archive != nil {
		bounds := resp.Image.Bounds()
		if err := p.archive.Put(archive.Entry{
			Name:   task.Name,
			Key:    key,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Passes: passes,
			Seed:   p.req.Seed,
			PNG:    resp.PNG,
		}); err != nil {
			return resp.Stats, fmt.Errorf("failed to archive %s: %w", task.Name, err)
		}
	}

	return resp.Stats, nil
}
