package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/MeKo-Tech/retouch/internal/archive"
)

// ArchiveHandler serves archived results as /results/<name>.png.
type ArchiveHandler struct {
	reader       *archive.Reader
	logger       *slog.Logger
	cacheControl string
}

// ArchiveConfig configures the archive handler.
type ArchiveConfig struct {
	Path         string
	CacheControl string
}

// NewArchiveHandler opens the archive read-only.
func NewArchiveHandler(cfg ArchiveConfig, logger *slog.Logger) (*ArchiveHandler, error) {
	reader, err := archive.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	return &ArchiveHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Handler returns the HTTP handler function.
func (h *ArchiveHandler) Handler() http.HandlerFunc {
	return h.serveResult
}

func (h *ArchiveHandler) serveResult(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/results/" || r.URL.Path == "/results" {
		h.serveIndex(w)
		return
	}

	name, ok := parseResultPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	entry, err := h.reader.Get(name)
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to read result", "name", name, "error", err)
		http.Error(w, "failed to read result", http.StatusInternalServerError)
		return
	}

	if h.cacheControl != "" {
		w.Header().Set("Cache-Control", h.cacheControl)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("ETag", `"`+entry.Key+`"`)

	if _, err := w.Write(entry.PNG); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

func (h *ArchiveHandler) serveIndex(w http.ResponseWriter) {
	infos, err := h.reader.List()
	if err != nil {
		h.log().Error("Failed to list results", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	if infos == nil {
		infos = []archive.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// Close closes the archive reader.
func (h *ArchiveHandler) Close() error {
	return h.reader.Close()
}

func (h *ArchiveHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseResultPath extracts the result name from /results/<name>.png.
func parseResultPath(requestPath string) (string, bool) {
	if !strings.HasPrefix(requestPath, "/results/") {
		return "", false
	}
	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return "", false
	}
	name := strings.TrimSuffix(base, ".png")
	if name == "" {
		return "", false
	}
	return name, true
}
