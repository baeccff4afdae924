package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task represents a unit of work to be processed by the pool.
type Task[T any, R any] struct {
	Input  T
	Result R
	Err    error
	// Done is false when the task was never run because the context ended.
	Done bool
}

// ProcessFunc is the function signature for processing a single task.
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// DoneFunc is called after each task completes. Calls are serialized;
// finished counts completed tasks including this one.
type DoneFunc[T any, R any] func(finished, total int, task Task[T, R])

// Pool is a generic worker pool with configurable concurrency.
type Pool[T any, R any] struct {
	workers int
	process ProcessFunc[T, R]
	onDone  DoneFunc[T, R]
}

// NewPool creates a new worker pool.
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{
		workers: workers,
		process: fn,
	}
}

// OnDone registers a completion callback and returns the pool.
func (p *Pool[T, R]) OnDone(fn DoneFunc[T, R]) *Pool[T, R] {
	p.onDone = fn
	return p
}

// Execute runs all inputs through the worker pool and returns results in
// input order. When ctx ends, tasks not yet started are skipped and tasks in
// flight run to completion.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Task[T, R] {
	results := make([]Task[T, R], len(inputs))
	for i := range inputs {
		results[i].Input = inputs[i]
	}
	inputCh := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
	)

	// Start workers.
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range inputCh {
				result, err := p.process(ctx, inputs[idx])
				task := Task[T, R]{
					Input:  inputs[idx],
					Result: result,
					Err:    err,
					Done:   true,
				}
				results[idx] = task
				if err != nil {
					log.Debug().Err(err).Int("worker", workerID).Int("index", idx).Msg("Task failed")
				}

				mu.Lock()
				finished++
				if p.onDone != nil {
					p.onDone(finished, len(inputs), task)
				}
				mu.Unlock()
			}
		}(w)
	}

	// Send inputs.
send:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break send
		case inputCh <- i:
		}
	}
	close(inputCh)

	// Wait for all workers to finish.
	wg.Wait()
	return results
}

// Batch splits items into consecutive batches of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}

// SaveInterval returns how many completions to wait between checkpoints so
// that roughly twenty checkpoints happen over total tasks.
func SaveInterval(total int) int {
	return max(1, total/20)
}
