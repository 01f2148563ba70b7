// Best-effort parallel mapping over a batch of tasks.
//
// This is the workhorse behind bulk remote calls: fan tasks out over a
// bounded worker pool, keep the results of tasks which succeed, and
// silently drop the ones which fail. Callers needing per-task error
// reporting should not use this package.
package pool

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/semaphore"
)

type config struct {
	workers     int
	progressOut io.Writer
}

type Option func(*config) *config

// WithWorkers sets the number of tasks running at once.
//
// Default: runtime.NumCPU(). Set 1 (or less) to run tasks sequentially.
func WithWorkers(n int) Option {
	return func(c *config) *config {
		c.workers = n
		return c
	}
}

// WithProgressOutput draws a progress bar on w while tasks run.
func WithProgressOutput(w io.Writer) Option {
	return func(c *config) *config {
		c.progressOut = w
		return c
	}
}

// Map runs tasks and collects the results of the ones which succeed.
//
// Tasks failing with an error contribute nothing to the result.
//
// When running sequentially (WithWorkers(1)), results keep the
// submission order of their tasks. Otherwise, ordering of results is
// not defined.
//
// Map stops starting new tasks once ctx is canceled; tasks already
// running are left to finish.
func Map[R any](ctx context.Context, tasks []func(context.Context) (R, error), opts ...Option) []R {
	conf := &config{workers: runtime.NumCPU()}
	for _, opt := range opts {
		conf = opt(conf)
	}

	var bar *pb.ProgressBar
	if conf.progressOut != nil {
		bar = pb.New(len(tasks))
		bar.SetWriter(conf.progressOut)
		bar.Start()
		defer bar.Finish()
	}
	tick := func() {
		if bar != nil {
			bar.Increment()
		}
	}

	if conf.workers <= 1 {
		results := []R{}
		for _, task := range tasks {
			if ctx.Err() != nil {
				break
			}
			r, err := task(ctx)
			tick()
			if err != nil {
				continue
			}
			results = append(results, r)
		}
		return results
	}

	sem := semaphore.NewWeighted(int64(conf.workers))
	mux := sync.Mutex{}
	results := []R{}

	wg := sync.WaitGroup{}
	for _, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // ctx is canceled
		}
		wg.Add(1)
		go func(task func(context.Context) (R, error)) {
			defer wg.Done()
			defer sem.Release(1)

			r, err := task(ctx)
			tick()
			if err != nil {
				return
			}
			mux.Lock()
			defer mux.Unlock()
			results = append(results, r)
		}(task)
	}
	wg.Wait()

	return results
}
