// Package worker runs inpaint jobs over many image/mask pairs in parallel.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MeKo-Tech/retouch/internal/inpaint"
)

// ErrSkipped is returned by a Processor that decided a task needs no work,
// for example because its result is already archived.
var ErrSkipped = errors.New("task skipped")

// Processor handles a single task.
type Processor interface {
	Process(ctx context.Context, task Task) (inpaint.Stats, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, task Task) (inpaint.Stats, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, task Task) (inpaint.Stats, error) {
	return f(ctx, task)
}

// Task is one image/mask pair to reconstruct.
type Task struct {
	Name       string
	ImagePath  string
	MaskPath   string
	OutputPath string
}

// Result is the outcome of a task.
type Result struct {
	Task    Task
	Stats   inpaint.Stats
	Err     error
	Skipped bool
	Elapsed time.Duration
}

// Counts is a progress snapshot.
type Counts struct {
	Completed int
	Total     int
	Failed    int
	Skipped   int
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(c Counts)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
}

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

type indexedTask struct {
	idx  int
	task Task
}

type indexedResult struct {
	idx int
	res Result
}

// Run executes all tasks and returns one result per task, in task order.
// A failing task never stops the others. After ctx is cancelled, tasks not yet
// started are reported with ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan indexedTask)
	resultCh := make(chan indexedResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for i, task := range tasks {
			taskCh <- indexedTask{idx: i, task: task}
		}
	}()

	results := make([]Result, len(tasks))
	done := make(chan struct{})

	go func() {
		var counts Counts
		counts.Total = len(tasks)
		for r := range resultCh {
			results[r.idx] = r.res

			counts.Completed++
			switch {
			case r.res.Skipped:
				counts.Skipped++
			case r.res.Err != nil:
				counts.Failed++
			}

			if p.onProgress != nil {
				p.onProgress(counts)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan indexedTask, results chan<- indexedResult) {
	for it := range tasks {
		if err := ctx.Err(); err != nil {
			results <- indexedResult{idx: it.idx, res: Result{Task: it.task, Err: err}}
			continue
		}

		start := time.Now()
		stats, err := p.processor.Process(ctx, it.task)
		res := Result{
			Task:    it.task,
			Stats:   stats,
			Err:     err,
			Elapsed: time.Since(start),
		}
		if errors.Is(err, ErrSkipped) {
			res.Err = nil
			res.Skipped = true
		}
		results <- indexedResult{idx: it.idx, res: res}
	}
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
