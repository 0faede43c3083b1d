package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/retouch/internal/inpaint"
)

// mockProcessor simulates inpaint jobs for testing
type mockProcessor struct {
	delay     time.Duration
	fail      map[string]bool // task names that should fail
	skip      map[string]bool // task names already done
	callCount atomic.Int32
}

func (m *mockProcessor) Process(ctx context.Context, task Task) (inpaint.Stats, error) {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return inpaint.Stats{}, ctx.Err()
	case <-time.After(m.delay):
	}

	if m.fail[task.Name] {
		return inpaint.Stats{}, errors.New("simulated failure")
	}
	if m.skip[task.Name] {
		return inpaint.Stats{}, ErrSkipped
	}
	return inpaint.Stats{Masked: len(task.Name)}, nil
}

func namedTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		name := fmt.Sprintf("img%02d", i)
		tasks[i] = Task{
			Name:       name,
			ImagePath:  name + ".png",
			MaskPath:   name + ".mask.png",
			OutputPath: "out/" + name + ".png",
		}
	}
	return tasks
}

func TestPool_BasicExecution(t *testing.T) {
	proc := &mockProcessor{delay: 10 * time.Millisecond}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	tasks := namedTasks(3)
	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Fatalf("Expected %d results, got %d", len(tasks), len(results))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.Name, r.Err)
		}
		if r.Task != tasks[i] {
			t.Errorf("Result %d belongs to %s, want %s", i, r.Task.Name, tasks[i].Name)
		}
		if r.Stats.Masked != len(tasks[i].Name) {
			t.Errorf("Expected stats to be carried for %s", r.Task.Name)
		}
	}

	if proc.callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d processor calls, got %d", len(tasks), proc.callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	proc := &mockProcessor{delay: 50 * time.Millisecond}

	pool := New(Config{
		Workers:   4,
		Processor: proc,
	})

	tasks := namedTasks(8)

	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// 4 workers, 8 tasks at 50ms each: ~100ms
	maxExpected := 200 * time.Millisecond
	if elapsed > maxExpected {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	proc := &mockProcessor{
		delay: 10 * time.Millisecond,
		fail:  map[string]bool{"img01": true},
	}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	results := pool.Run(context.Background(), namedTasks(3))

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	failed := Failed(results)
	if len(failed) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(failed))
	}
	if failed[0].Task.Name != "img01" {
		t.Errorf("Unexpected failure for %s", failed[0].Task.Name)
	}
}

func TestPool_Skipped(t *testing.T) {
	proc := &mockProcessor{skip: map[string]bool{"img00": true}}

	var last Counts
	pool := New(Config{
		Workers:    1,
		Processor:  proc,
		OnProgress: func(c Counts) { last = c },
	})

	results := pool.Run(context.Background(), namedTasks(2))

	if !results[0].Skipped || results[0].Err != nil {
		t.Errorf("Expected img00 to be skipped without error, got %+v", results[0])
	}
	if results[1].Skipped {
		t.Error("img01 should not be skipped")
	}
	if last.Skipped != 1 || last.Failed != 0 || last.Completed != 2 {
		t.Errorf("Unexpected final counts %+v", last)
	}
}

func TestPool_Cancellation(t *testing.T) {
	proc := &mockProcessor{delay: 100 * time.Millisecond}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	tasks := namedTasks(10)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}
	if len(results) != len(tasks) {
		t.Fatalf("Expected a result for every task, got %d", len(results))
	}

	var cancelled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled != len(tasks) {
		t.Errorf("Expected all %d tasks cancelled, got %d", len(tasks), cancelled)
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	proc := &mockProcessor{delay: 10 * time.Millisecond}

	var progressCalls atomic.Int32
	var last Counts

	pool := New(Config{
		Workers:   2,
		Processor: proc,
		OnProgress: func(c Counts) {
			progressCalls.Add(1)
			last = c
		},
	})

	tasks := namedTasks(3)
	pool.Run(context.Background(), tasks)

	if progressCalls.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d progress callbacks, got %d", len(tasks), progressCalls.Load())
	}
	if last.Completed != len(tasks) || last.Total != len(tasks) {
		t.Errorf("Expected final counts %d/%d, got %+v", len(tasks), len(tasks), last)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	proc := &mockProcessor{}

	pool := New(Config{
		Workers:   2,
		Processor: proc,
	})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
	if proc.callCount.Load() != 0 {
		t.Errorf("Expected 0 processor calls for empty tasks, got %d", proc.callCount.Load())
	}
}

func TestProcessorFunc(t *testing.T) {
	var seen string
	pool := New(Config{Processor: ProcessorFunc(func(_ context.Context, task Task) (inpaint.Stats, error) {
		seen = task.MaskPath
		return inpaint.Stats{}, nil
	})})

	pool.Run(context.Background(), []Task{{Name: "a", MaskPath: "a.mask.png"}})

	if seen != "a.mask.png" {
		t.Errorf("Expected processor to see a.mask.png, got %q", seen)
	}
}
