package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress renders a single-line progress bar for a batch run.
type Progress struct {
	startTime time.Time
	output    io.Writer
	counts    Counts
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a progress tracker writing to stderr.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		counts:    Counts{Total: total},
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records a progress snapshot.
func (p *Progress) Update(c Counts) {
	p.mu.Lock()
	p.counts = c
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Print writes the current progress line.
func (p *Progress) Print() {
	p.mu.RLock()
	c := p.counts
	startTime := p.startTime
	p.mu.RUnlock()

	elapsed := time.Since(startTime)

	var rate float64
	var eta time.Duration
	if c.Completed > 0 {
		rate = float64(c.Completed) / elapsed.Seconds()
		if rate > 0 {
			eta = time.Duration(float64(c.Total-c.Completed)/rate) * time.Second
		}
	}

	barWidth := 30
	filled := 0
	if c.Total > 0 {
		filled = int(float64(c.Completed) / float64(c.Total) * float64(barWidth))
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %d/%d images", bar, c.Completed, c.Total)
	if c.Skipped > 0 {
		line += fmt.Sprintf(" (%d skipped)", c.Skipped)
	}
	if c.Failed > 0 {
		line += fmt.Sprintf(" (%d failed)", c.Failed)
	}
	line += fmt.Sprintf(" - %.1f images/sec", rate)
	if eta > 0 && c.Completed < c.Total {
		line += fmt.Sprintf(" - ETA: %s", formatDuration(eta))
	}
	if c.Completed == c.Total {
		line += fmt.Sprintf(" - Done in %s", formatDuration(elapsed))
	}

	// Pad to clear previous line content
	line += "          "

	fmt.Fprint(p.output, line)
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary describes the finished run.
func (p *Progress) Summary() string {
	p.mu.RLock()
	c := p.counts
	startTime := p.startTime
	p.mu.RUnlock()

	elapsed := time.Since(startTime)
	inpainted := c.Completed - c.Failed - c.Skipped

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(c.Completed) / elapsed.Seconds()
	}

	return fmt.Sprintf("Inpainted %d/%d images (%d skipped, %d failed) in %s (%.1f images/sec)",
		inpainted, c.Total, c.Skipped, c.Failed, formatDuration(elapsed), rate)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
