package curvegroup

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelThreshold is the batch size at or below which ParallelMap runs
// sequentially in the calling goroutine rather than paying goroutine-spawn
// overhead. The per-index work in this module (a handful of scalar
// multiplications and a SHA-256) is cheap enough that parallelizing a batch
// of a handful of messages is pure overhead.
const ParallelThreshold = 8

// ParallelMap computes f(i) for every i in [0, n) and returns the results in
// order. Below ParallelThreshold it runs sequentially; above it, work is
// spread across up to runtime.GOMAXPROCS(0) goroutines using
// golang.org/x/sync/errgroup. The per-index scalar multiplications, hashes,
// and field arithmetic in this module are all independent, so callers can
// map any batch through here without affecting protocol outputs.
//
// If any f(i) returns an error, ParallelMap returns one of the errors and a
// nil result slice.
func ParallelMap[R any](n int, f func(i int) (R, error)) ([]R, error) {
	results := make([]R, n)

	if n <= ParallelThreshold {
		for i := 0; i < n; i++ {
			r, err := f(i)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r, err := f(i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
