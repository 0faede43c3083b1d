// Package server exposes the inpaint engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/retouch/internal/archive"
	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/MeKo-Tech/retouch/internal/inpaint"
	"github.com/MeKo-Tech/retouch/internal/retouch"
)

// InpaintConfig configures the inpaint endpoint.
type InpaintConfig struct {
	// Archive receives every successful result when set.
	Archive *archive.Writer
	// Compression is the PNG compression for responses (default, speed, best, none).
	Compression string
	// MaxConcurrent bounds simultaneous reconstructions (default 1).
	MaxConcurrent int
	// QueueTimeout is how long a request waits for a free slot before 503 (default 30s).
	QueueTimeout time.Duration
	// MaxBodyBytes bounds the JSON request body (default 32 MiB).
	MaxBodyBytes int64
	// MaxPixels bounds decoded image size (0 = unlimited).
	MaxPixels int
	// DefaultPasses applies when a request omits passes (default inpaint.DefaultPasses).
	DefaultPasses int
}

// InpaintRequest is the JSON body of POST /inpaint.
type InpaintRequest struct {
	Seed        *int64  `json:"seed,omitempty"`
	Image       string  `json:"image"`
	Mask        string  `json:"mask"`
	MaskChannel string  `json:"mask_channel,omitempty"`
	Name        string  `json:"name,omitempty"`
	Passes      int     `json:"passes,omitempty"`
	Feather     float32 `json:"feather,omitempty"`
}

// InpaintResponse is the JSON body of a successful POST /inpaint.
type InpaintResponse struct {
	Image  string    `json:"image"`
	Key    string    `json:"key"`
	Stats  StatsJSON `json:"stats"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

// StatsJSON mirrors inpaint.Stats for clients.
type StatsJSON struct {
	Box         [4]int     `json:"box"`
	Reference   [3]float64 `json:"reference"`
	Masked      int        `json:"masked"`
	DonorHits   int        `json:"donor_hits"`
	DonorMisses int        `json:"donor_misses"`
	Iterations  int        `json:"iterations"`
	ElapsedMS   int64      `json:"elapsed_ms"`
	Empty       bool       `json:"empty"`
}

func statsJSON(s inpaint.Stats) StatsJSON {
	out := StatsJSON{
		Masked:      s.Masked,
		DonorHits:   s.DonorHits,
		DonorMisses: s.DonorMisses,
		Iterations:  s.Iterations,
		ElapsedMS:   s.Elapsed.Milliseconds(),
		Empty:       s.Empty,
	}
	if !s.Empty {
		out.Box = [4]int{s.Box.MinX, s.Box.MinY, s.Box.MaxX, s.Box.MaxY}
		out.Reference = [3]float64{s.Reference.R, s.Reference.G, s.Reference.B}
	}
	return out
}

// Status is the JSON body of GET /status.
type Status struct {
	ActiveJobs    int      `json:"active_jobs"`
	QueuedJobs    int      `json:"queued_jobs"`
	TotalDone     int64    `json:"total_done"`
	TotalFailed   int64    `json:"total_failed"`
	TotalRejected int64    `json:"total_rejected"`
	MaxConcurrent int      `json:"max_concurrent"`
	CurrentJobs   []string `json:"current_jobs"`
}

// InpaintHandler serves POST /inpaint.
type InpaintHandler struct {
	svc    *retouch.Service
	logger *slog.Logger
	sem    chan struct{}
	cfg    InpaintConfig

	activeJobs    atomic.Int32
	queuedJobs    atomic.Int32
	totalDone     atomic.Int64
	totalFailed   atomic.Int64
	totalRejected atomic.Int64
	jobSeq        atomic.Uint64
	currentJobs   sync.Map // map[uint64]string - job id -> content key
}

// NewInpaintHandler creates the handler.
func NewInpaintHandler(cfg InpaintConfig, logger *slog.Logger) *InpaintHandler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	cfg.DefaultPasses = inpaint.EffectivePasses(cfg.DefaultPasses)

	return &InpaintHandler{
		svc: retouch.New(retouch.Config{
			Logger:      logger,
			Compression: cfg.Compression,
			MaxPixels:   cfg.MaxPixels,
		}),
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
		cfg:    cfg,
	}
}

// Handler returns the HTTP handler for POST /inpaint.
func (h *InpaintHandler) Handler() http.Handler {
	return http.HandlerFunc(h.serveInpaint)
}

func (h *InpaintHandler) serveInpaint(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	var req InpaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	source, err := codec.Payload(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("image: %v", err))
		return
	}
	maskData, err := codec.Payload(req.Mask)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("mask: %v", err))
		return
	}
	channel, err := retouch.ParseMaskChannel(req.MaskChannel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	passes := req.Passes
	if passes <= 0 {
		passes = h.cfg.DefaultPasses
	}
	key := archive.ContentKey(source, maskData, passes, req.Seed)

	if !h.acquire(w, r, key) {
		return
	}
	defer func() { <-h.sem }()

	done := h.trackJob(key)
	resp, err := h.svc.Inpaint(r.Context(), source, maskData, retouch.Request{
		Seed:         req.Seed,
		MaskChannel:  channel,
		Passes:       passes,
		FeatherSigma: req.Feather,
	})
	done()

	if err != nil {
		h.totalFailed.Add(1)
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.log().Error("Inpaint failed", "key", key, "error", err)
		} else {
			h.log().Warn("Inpaint rejected", "key", key, "status", status, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	h.totalDone.Add(1)

	if h.cfg.Archive != nil {
		name := req.Name
		if name == "" {
			name = key
		}
		bounds := resp.Image.Bounds()
		if err := h.cfg.Archive.Put(archive.Entry{
			Name:   name,
			Key:    key,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Passes: passes,
			Seed:   req.Seed,
			PNG:    resp.PNG,
		}); err != nil {
			h.log().Error("Failed to archive result", "key", key, "error", err)
		}
	}

	bounds := resp.Image.Bounds()
	writeJSON(w, http.StatusOK, InpaintResponse{
		Image:  codec.DataURL(resp.PNG),
		Key:    key,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Stats:  statsJSON(resp.Stats),
	})
}

// trackJob registers a running job under its own id, so identical concurrent
// requests are listed separately. The returned func unregisters it.
func (h *InpaintHandler) trackJob(key string) func() {
	id := h.jobSeq.Add(1)
	h.activeJobs.Add(1)
	h.currentJobs.Store(id, key)
	return func() {
		h.currentJobs.Delete(id)
		h.activeJobs.Add(-1)
	}
}

// acquire waits for a free slot. It writes the error response and returns
// false when the request is cancelled or the queue timeout expires.
func (h *InpaintHandler) acquire(w http.ResponseWriter, r *http.Request, key string) bool {
	h.queuedJobs.Add(1)
	defer h.queuedJobs.Add(-1)

	timer := time.NewTimer(h.cfg.QueueTimeout)
	defer timer.Stop()

	select {
	case h.sem <- struct{}{}:
		return true
	case <-r.Context().Done():
		writeError(w, http.StatusRequestTimeout, "request cancelled")
		return false
	case <-timer.C:
		h.totalRejected.Add(1)
		h.log().Warn("Inpaint queue saturated", "key", key, "waited", h.cfg.QueueTimeout)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "server busy, try again later")
		return false
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, codec.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, codec.ErrDecode),
		errors.Is(err, inpaint.ErrDimensionMismatch),
		errors.Is(err, inpaint.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, inpaint.ErrNoReferenceSample):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Status returns a snapshot of the job counters.
func (h *InpaintHandler) Status() Status {
	current := []string{}
	h.currentJobs.Range(func(_, key any) bool {
		current = append(current, key.(string))
		return true
	})

	return Status{
		ActiveJobs:    int(h.activeJobs.Load()),
		QueuedJobs:    int(h.queuedJobs.Load()),
		TotalDone:     h.totalDone.Load(),
		TotalFailed:   h.totalFailed.Load(),
		TotalRejected: h.totalRejected.Load(),
		MaxConcurrent: h.cfg.MaxConcurrent,
		CurrentJobs:   current,
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (h *InpaintHandler) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, h.Status())
	})
}

// StatusStreamHandler pushes the status as Server-Sent Events every 250ms.
func (h *InpaintHandler) StatusStreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		h.sendStatusEvent(w, flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				h.sendStatusEvent(w, flusher)
			}
		}
	})
}

func (h *InpaintHandler) sendStatusEvent(w http.ResponseWriter, flusher http.Flusher) {
	data, err := json.Marshal(h.Status())
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (h *InpaintHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
