package encoder

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"qrt/internal/codec"
)

// ParallelThreshold is the chunk count above which encoding is dispatched to
// the worker pool. At or below it, encoding runs sequentially; the observable
// result is identical either way.
const ParallelThreshold = 3

const maxWorkers = 8

// EncodeFunc produces one wire record from one chunk.
type EncodeFunc func(c codec.Chunk) (string, error)

// PartialFailureError reports every chunk whose encoding failed. Sibling
// chunks are unaffected; overall encoding succeeds only when no index failed.
type PartialFailureError struct {
	Failures map[int]error
}

func (e *PartialFailureError) Error() string {
	indices := e.Indices()
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		parts = append(parts, fmt.Sprintf("part %d: %v", i, e.Failures[i]))
	}
	return fmt.Sprintf("failed to encode %d chunk(s): %s", len(indices), strings.Join(parts, "; "))
}

// Indices returns the failed chunk indices in ascending order.
func (e *PartialFailureError) Indices() []int {
	indices := make([]int, 0, len(e.Failures))
	for i := range e.Failures {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// PoolSize bounds the worker count by available parallelism.
func PoolSize() int {
	n := runtime.NumCPU() + 2
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// EncodeAll drives encoding of every chunk and returns the wire records in
// chunk order regardless of completion order. Pool size is a resource cap,
// not a correctness parameter.
func EncodeAll(chunks []codec.Chunk, fn EncodeFunc) ([]string, error) {
	if len(chunks) > ParallelThreshold {
		return encodeParallel(chunks, fn, PoolSize())
	}
	return encodeSequential(chunks, fn)
}

func encodeSequential(chunks []codec.Chunk, fn EncodeFunc) ([]string, error) {
	records := make([]string, len(chunks))
	failures := make(map[int]error)

	for i, c := range chunks {
		record, err := fn(c)
		if err != nil {
			failures[c.Index] = err
			continue
		}
		records[i] = record
	}

	if len(failures) > 0 {
		return nil, &PartialFailureError{Failures: failures}
	}
	return records, nil
}

type result struct {
	pos    int
	index  int
	record string
	err    error
}

func encodeParallel(chunks []codec.Chunk, fn EncodeFunc, workers int) ([]string, error) {
	jobs := make(chan int)
	results := make(chan result, len(chunks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range jobs {
				c := chunks[pos]
				record, err := fn(c)
				results <- result{pos: pos, index: c.Index, record: record, err: err}
			}
		}()
	}

	for pos := range chunks {
		jobs <- pos
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Gather: tasks complete in arbitrary order, the output never does.
	records := make([]string, len(chunks))
	failures := make(map[int]error)
	for r := range results {
		if r.err != nil {
			failures[r.index] = r.err
			continue
		}
		records[r.pos] = r.record
	}

	if len(failures) > 0 {
		return nil, &PartialFailureError{Failures: failures}
	}
	return records, nil
}
