// Package pipeline converts raw chemical-structure strings into junction
// trees and a shared symbol vocabulary. Work fans out over a fixed pool of
// stateless workers in fixed-size chunks and fans back in preserving original
// submission order, so the index correspondence back to the source dataset is
// deterministic across runs.
package pipeline

import (
	"runtime"
	"sync"
)

// Default chunking parameters, matching the sizes the datasets were tuned
// with. NumWorkers zero means one worker per logical CPU.
const DefaultChunkSize = 5000

// Options configures the fan-out of both the vocabulary builder and the
// preprocessor.
type Options struct {
	// NumWorkers is the fixed size of the worker pool. Zero or negative
	// selects runtime.GOMAXPROCS(0).
	NumWorkers int

	// ChunkSize is the number of structures dispatched per chunk. Zero or
	// negative selects DefaultChunkSize.
	ChunkSize int
}

func (o Options) workers() int {
	if o.NumWorkers > 0 {
		return o.NumWorkers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

// mapOrdered applies fn to every item using a pool of workers and returns the
// results in submission order. fn must be pure: workers share no state and
// never communicate. Items are consumed chunk by chunk so that at most one
// chunk of results is in flight beyond what the pool is busy with.
func mapOrdered[T any](items []string, opts Options, fn func(string) T) []T {
	results := make([]T, len(items))
	if len(items) == 0 {
		return results
	}

	workers := opts.workers()
	chunk := opts.chunkSize()

	for start := 0; start < len(items); start += chunk {
		end := start + chunk
		if end > len(items) {
			end = len(items)
		}

		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = fn(items[i])
				}
			}()
		}
		for i := start; i < end; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}
	return results
}
