package utils

import (
	"context"
	"os"
	"strconv"
	"sync"
)

// DefaultConcurrency is used when no positive concurrency is configured.
const DefaultConcurrency = 4

// ConcurrencyLimit returns TEXTENCODE_CONCURRENCY from the environment or DefaultConcurrency.
func ConcurrencyLimit() int {
	limit, err := strconv.Atoi(os.Getenv("TEXTENCODE_CONCURRENCY"))
	if err != nil || limit <= 0 {
		return DefaultConcurrency
	}
	return limit
}

// Worker represents a worker function that processes items from a channel
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool manages a pool of workers processing items concurrently.
//
// Goroutine Lifecycle:
//   - Worker goroutines are created when ProcessItems is called
//   - Workers read from an internal items channel until it is exhausted
//   - Workers stop early when the context is cancelled
//   - ProcessItems blocks until all workers complete
//   - Panics in workers are recovered and converted to PanicError
//
// Results are returned in item order regardless of completion order.
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = ConcurrencyLimit()
	}
	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		worker:     worker,
	}
}

type indexedItem[T any] struct {
	item  T
	index int
}

// ProcessItems processes items using the worker pool. Items that were never
// started because ctx was cancelled get ctx.Err() as their error.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	itemsChan := make(chan indexedItem[T], len(items))
	for i, item := range items {
		itemsChan <- indexedItem[T]{item: item, index: i}
	}
	close(itemsChan)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	started := make([]bool, len(items))

	workers := wp.numWorkers
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case it, ok := <-itemsChan:
					if !ok {
						return
					}
					started[it.index] = true
					func() {
						defer RecoverWithCallback(func(err error) {
							errs[it.index] = err
						})
						results[it.index], errs[it.index] = wp.worker(ctx, it.item)
					}()
				}
			}
		}()
	}

	wg.Wait()

	for i := range items {
		if !started[i] && errs[i] == nil {
			errs[i] = ctx.Err()
		}
	}
	return results, errs
}

// Batch splits items into consecutive batches of at most batchSize items.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 10
	}

	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// FirstError returns the first non-nil error and its index, or (-1, nil).
func FirstError(errs []error) (int, error) {
	for i, err := range errs {
		if err != nil {
			return i, err
		}
	}
	return -1, nil
}
