package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/retouch/internal/archive"
	"github.com/MeKo-Tech/retouch/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the inpaint engine over HTTP",
	Long: `Serve exposes POST /inpaint (JSON with base64 image and mask), GET /status,
GET /status/stream (Server-Sent Events), and GET /healthz.

With --archive every result is stored in an SQLite archive. With --results an
existing archive is served read-only under /results/<name>.png.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("max-concurrent", runtime.NumCPU(), "Max concurrent reconstructions (default: number of CPUs)")
	serveCmd.Flags().Duration("queue-timeout", 30*time.Second, "How long a request waits for a free slot before 503")
	serveCmd.Flags().Int64("max-body-bytes", 32<<20, "Maximum JSON request body size")
	serveCmd.Flags().Int("default-passes", 1200, "Passes used when a request omits them")
	serveCmd.Flags().String("archive", "", "SQLite archive receiving every result")
	serveCmd.Flags().String("results", "", "SQLite archive served read-only under /results/")
	serveCmd.Flags().String("cache-control", "public, max-age=86400", "Cache-Control header for archived results")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"serve.addr", "addr"},
		{"serve.max_concurrent", "max-concurrent"},
		{"serve.queue_timeout", "queue-timeout"},
		{"serve.max_body_bytes", "max-body-bytes"},
		{"serve.default_passes", "default-passes"},
		{"serve.archive", "archive"},
		{"serve.results", "results"},
		{"serve.cache_control", "cache-control"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, serveCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	maxConc := viper.GetInt("serve.max_concurrent")
	queueTimeout := viper.GetDuration("serve.queue_timeout")
	archivePath := viper.GetString("serve.archive")
	resultsPath := viper.GetString("serve.results")

	if archivePath != "" && archivePath == resultsPath {
		return fmt.Errorf("--archive and --results must name different files")
	}

	cfg := server.InpaintConfig{
		Compression:   viper.GetString("png_compression"),
		MaxConcurrent: maxConc,
		QueueTimeout:  queueTimeout,
		MaxBodyBytes:  viper.GetInt64("serve.max_body_bytes"),
		MaxPixels:     viper.GetInt("max_pixels"),
		DefaultPasses: viper.GetInt("serve.default_passes"),
	}

	if archivePath != "" {
		w, err := archive.Create(archivePath, archive.Metadata{
			Name:        "retouch",
			Description: "Results served over HTTP",
			Version:     "1",
			Compression: cfg.Compression,
		})
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer w.Close()
		cfg.Archive = w
	}

	var results *server.ArchiveHandler
	if resultsPath != "" {
		var err error
		results, err = server.NewArchiveHandler(server.ArchiveConfig{
			Path:         resultsPath,
			CacheControl: viper.GetString("serve.cache_control"),
		}, logger)
		if err != nil {
			return err
		}
		defer results.Close()
	}

	handler := server.NewInpaintHandler(cfg, logger)
	mux := server.NewMux(handler, results)

	logger.Info("inpaint server listening",
		"addr", addr,
		"max_concurrent", maxConc,
		"queue_timeout", queueTimeout,
		"archive", archivePath,
		"results", resultsPath,
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
