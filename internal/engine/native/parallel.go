package native

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// parallelRows runs fn(y) over y in [0, n) using up to GOMAXPROCS workers.
// Work stops early once ctx is done, in which case the context error is returned.
func parallelRows(ctx context.Context, n int, fn func(y int)) error {
	stopped := parallelForStop(n, func(y int) bool {
		if ctx.Err() != nil {
			return true
		}
		fn(y)
		return false
	})
	if stopped {
		return ctx.Err()
	}
	return nil
}

// parallelForStop runs fn(y) over y in [0, n) using up to GOMAXPROCS workers.
// Work is distributed by striding to balance uneven workloads.
// If any fn invocation returns true, all workers stop early and the function returns true.
func parallelForStop(n int, fn func(y int) bool) bool {
	if n <= 0 {
		return false
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var stop atomic.Bool
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for y := w; y < n && !stop.Load(); y += workers {
				if fn(y) {
					stop.Store(true)
					return
				}
			}
		}()
	}

	wg.Wait()
	return stop.Load()
}
